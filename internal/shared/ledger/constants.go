package ledger

// Outcome statuses carried on the wire.
const (
	StatusSuccessful              = "SUCCESSFUL"
	StatusFailedInsufficientFunds = "FAILED_INSUFFICIENT_FUNDS"
	StatusFailedError             = "FAILED_ERROR"
)

const (
	EventTypeWithdrawalSucceeded = "WithdrawalSucceeded"
	EventTypeWithdrawalRejected  = "WithdrawalRejected"
	EventTypeWithdrawalErrored   = "WithdrawalErrored"
)

const (
	DefaultWithdrawalTopic = "cbledger.withdrawal.outcome"
)

// EventTypeForStatus maps an outcome status to the event_type header value.
func EventTypeForStatus(status string) string {
	switch status {
	case StatusSuccessful:
		return EventTypeWithdrawalSucceeded
	case StatusFailedInsufficientFunds:
		return EventTypeWithdrawalRejected
	default:
		return EventTypeWithdrawalErrored
	}
}
