package app

import (
	"fmt"
	"strings"

	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type validatedDebit struct {
	AccountID int64
	Amount    decimal.Decimal
	TraceID   string
}

func newValidatedDebit(p DebitParams) (validatedDebit, error) {
	if p.AccountID <= 0 {
		return validatedDebit{}, fmt.Errorf("%w: account id must be > 0", ErrInvalidRequest)
	}
	if !p.Amount.IsPositive() {
		return validatedDebit{}, fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}
	if !p.Amount.Equal(p.Amount.Truncate(ledger.AmountScale)) {
		return validatedDebit{}, fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidRequest, ledger.AmountScale)
	}

	traceID := strings.TrimSpace(p.TraceID)
	if traceID == "" {
		traceID = uuid.NewString()
	}

	return validatedDebit{
		AccountID: p.AccountID,
		Amount:    p.Amount,
		TraceID:   traceID,
	}, nil
}
