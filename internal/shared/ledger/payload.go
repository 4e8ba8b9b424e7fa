package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits amounts and balances are kept at.
const AmountScale = 2

// WithdrawalOutcomePayload is the message published once per completed withdrawal attempt.
// Consumers deduplicate on IdempotencyToken.
type WithdrawalOutcomePayload struct {
	Amount           string `json:"amount"`
	AccountID        int64  `json:"accountId"`
	Status           string `json:"status"`
	IdempotencyToken string `json:"idempotencyToken"`
}

func NewWithdrawalOutcome(accountID int64, amount decimal.Decimal, status, token string) WithdrawalOutcomePayload {
	return WithdrawalOutcomePayload{
		Amount:           amount.StringFixed(AmountScale),
		AccountID:        accountID,
		Status:           status,
		IdempotencyToken: token,
	}
}

func (p *WithdrawalOutcomePayload) Validate() error {
	if p.AccountID <= 0 {
		return errors.New("accountId must be positive")
	}
	if p.IdempotencyToken == "" {
		return errors.New("idempotencyToken is empty")
	}

	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return fmt.Errorf("amount %q is not a decimal: %w", p.Amount, err)
	}
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}

	switch p.Status {
	case StatusSuccessful, StatusFailedInsufficientFunds, StatusFailedError:
	default:
		return fmt.Errorf("unknown status %q", p.Status)
	}

	return nil
}

func (p *WithdrawalOutcomePayload) AmountDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(p.Amount)
	return d
}
