package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cicconee/cbledger/internal/ledger/repo"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/cicconee/cbledger/internal/platform/retry"
	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxAttempts    = 3
	DefaultPublishTimeout = 2 * time.Second
)

// Store is the balance store. ConditionalUpdate must apply the new balance only when the stored
// balance still equals Expected, and must record the journal row in the same commit.
type Store interface {
	ReadBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	ConditionalUpdate(ctx context.Context, p repo.ConditionalUpdateParams) (repo.UpdateResult, error)
	FindDebit(ctx context.Context, token string) (repo.Debit, error)
	CreateAccount(ctx context.Context, accountID int64, balance decimal.Decimal) error
	GetAccount(ctx context.Context, accountID int64) (repo.Account, error)
}

// Sink delivers withdrawal outcome events. Delivery is at-least-once.
type Sink interface {
	Publish(ctx context.Context, evt ledger.WithdrawalOutcomePayload, traceID string) error
}

type Options struct {
	// MaxAttempts bounds how many times a debit re-reads and retries after losing a
	// compare-and-swap to a concurrent writer.
	MaxAttempts    int
	PublishTimeout time.Duration
	Retry          retry.Config
}

type Service struct {
	store Store
	sink  Sink
	log   *logging.Logger
	opts  Options
	now   func() time.Time
}

func NewService(store Store, sink Sink, log *logging.Logger, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &Service{
		store: store,
		sink:  sink,
		log:   log,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type DebitParams struct {
	AccountID int64
	Amount    decimal.Decimal
	TraceID   string
}

type OutcomeStatus string

const (
	OutcomeSuccess           OutcomeStatus = "SUCCESS"
	OutcomeInsufficientFunds OutcomeStatus = "INSUFFICIENT_FUNDS"
)

type Outcome struct {
	Status           OutcomeStatus
	AccountID        int64
	Amount           decimal.Decimal
	Balance          decimal.Decimal
	IdempotencyToken string
	// Notified reports whether the outcome event was accepted by the sink.
	Notified bool
}

// Debit withdraws p.Amount from the account if the balance covers it. Every call that ends in
// success or insufficient funds publishes exactly one outcome event. Storage failures return an
// error wrapping ErrStorage and publish nothing.
func (s *Service) Debit(ctx context.Context, p DebitParams) (Outcome, error) {
	v, err := newValidatedDebit(p)
	if err != nil {
		return Outcome{}, err
	}

	token := uuid.NewString()
	log := s.log.With("account_id", v.AccountID, "idempotency_token", token, "trace_id", v.TraceID)

	var (
		st      debitAttempts
		outcome Outcome
	)

	policy := debitRetryPolicy(s.opts.Retry, s.opts.MaxAttempts, &st)
	policy.OnRetry = func(attempt int, err error) {
		log.Debug("debit attempt failed, retrying", "attempt", attempt, "err", err)
	}

	err = retry.Do(ctx, policy, func() error {
		if st.checkJournal {
			debit, err := s.store.FindDebit(ctx, token)
			switch {
			case err == nil:
				log.Info("debit found in journal after storage failure")
				outcome = s.outcome(OutcomeSuccess, v, debit.BalanceAfter, token)
				return nil
			case !errors.Is(err, repo.ErrDebitNotFound):
				return err
			}
			st.checkJournal = false
		}

		var err error
		outcome, err = s.attempt(ctx, v, token)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrAccountNotFound):
			return Outcome{}, ErrAccountNotFound
		case errors.Is(err, errConflict):
			log.Warn("debit gave up after repeated conflicts", "conflicts", st.conflicts)
			return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, ErrConflictExhausted)
		default:
			log.Error("debit failed", "err", err)
			return Outcome{}, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}

	outcome.Notified = s.publish(ctx, log, outcome, v.TraceID)

	if outcome.Status == OutcomeInsufficientFunds {
		return outcome, ErrInsufficientFunds
	}
	return outcome, nil
}

// attempt performs one read plus compare-and-swap.
func (s *Service) attempt(ctx context.Context, v validatedDebit, token string) (Outcome, error) {
	balance, err := s.store.ReadBalance(ctx, v.AccountID)
	if err != nil {
		return Outcome{}, err
	}

	if balance.LessThan(v.Amount) {
		return s.outcome(OutcomeInsufficientFunds, v, balance, token), nil
	}

	next := balance.Sub(v.Amount)
	res, err := s.store.ConditionalUpdate(ctx, repo.ConditionalUpdateParams{
		AccountID: v.AccountID,
		Expected:  balance,
		New:       next,
		Amount:    v.Amount,
		Token:     token,
		Now:       s.now(),
	})
	if err != nil {
		return Outcome{}, err
	}

	switch res {
	case repo.UpdateCommitted:
		return s.outcome(OutcomeSuccess, v, next, token), nil
	case repo.UpdateConflict:
		return Outcome{}, errConflict
	case repo.UpdateNotFound:
		return Outcome{}, repo.ErrAccountNotFound
	default:
		return Outcome{}, fmt.Errorf("unexpected conditional update result %d", res)
	}
}

func (s *Service) outcome(status OutcomeStatus, v validatedDebit, balance decimal.Decimal, token string) Outcome {
	return Outcome{
		Status:           status,
		AccountID:        v.AccountID,
		Amount:           v.Amount,
		Balance:          balance,
		IdempotencyToken: token,
	}
}

// publish sends the outcome event. The balance change is already durable, so a sink failure is
// logged and reported through Outcome.Notified only.
func (s *Service) publish(ctx context.Context, log *logging.Logger, o Outcome, traceID string) bool {
	if s.sink == nil {
		return false
	}

	status := ledger.StatusSuccessful
	if o.Status == OutcomeInsufficientFunds {
		status = ledger.StatusFailedInsufficientFunds
	}
	evt := ledger.NewWithdrawalOutcome(o.AccountID, o.Amount, status, o.IdempotencyToken)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()

	if err := s.sink.Publish(pctx, evt, traceID); err != nil {
		log.Warn("withdrawal outcome not published", "status", status, "err", err)
		return false
	}

	return true
}

// GetBalance returns the current balance of an account.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if accountID <= 0 {
		return decimal.Zero, fmt.Errorf("%w: account id must be > 0", ErrInvalidRequest)
	}

	bal, err := s.store.ReadBalance(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return bal, nil
}
