package repo

import (
	"errors"
	"time"

	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrDebitNotFound   = errors.New("debit not found")
	ErrNegativeBalance = errors.New("balance would go negative")
)

type UpdateResult int

const (
	UpdateCommitted UpdateResult = iota + 1
	UpdateConflict
	UpdateNotFound
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateCommitted:
		return "committed"
	case UpdateConflict:
		return "conflict"
	case UpdateNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ConditionalUpdateParams describes a compare-and-swap of an account balance. The journal row keyed
// by Token is written in the same transaction as the balance change.
type ConditionalUpdateParams struct {
	AccountID int64
	Expected  decimal.Decimal
	New       decimal.Decimal
	Amount    decimal.Decimal
	Token     string
	Now       time.Time
}

type Account struct {
	ID        int64
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

type Debit struct {
	Token         string
	AccountID     int64
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

func (d Debit) withAmounts(amount, before, after string) (Debit, error) {
	var err error
	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return Debit{}, err
	}
	if d.BalanceBefore, err = decimal.NewFromString(before); err != nil {
		return Debit{}, err
	}
	if d.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return Debit{}, err
	}
	return d, nil
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(ledger.AmountScale)
}
