package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cicconee/cbledger/internal/ledger/repo"
	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/shopspring/decimal"
)

var ErrAccountExists = errors.New("account already exists")

// OpenAccount seeds an account with an opening balance. It exists for development and tests;
// production accounts are provisioned outside this service.
func (s *Service) OpenAccount(ctx context.Context, accountID int64, balance decimal.Decimal) (repo.Account, error) {
	if accountID <= 0 {
		return repo.Account{}, fmt.Errorf("%w: account id must be > 0", ErrInvalidRequest)
	}
	if balance.IsNegative() {
		return repo.Account{}, fmt.Errorf("%w: opening balance must be >= 0", ErrInvalidRequest)
	}
	if !balance.Equal(balance.Truncate(ledger.AmountScale)) {
		return repo.Account{}, fmt.Errorf("%w: balance has more than %d decimal places", ErrInvalidRequest, ledger.AmountScale)
	}

	if err := s.store.CreateAccount(ctx, accountID, balance); err != nil {
		switch {
		case errors.Is(err, repo.ErrAccountExists):
			return repo.Account{}, ErrAccountExists
		case errors.Is(err, repo.ErrNegativeBalance):
			return repo.Account{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return repo.Account{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return repo.Account{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.log.Info("account opened", "account_id", accountID, "balance", balance.StringFixed(ledger.AmountScale))
	return acc, nil
}
