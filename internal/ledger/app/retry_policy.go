package app

import (
	"context"
	"errors"

	"github.com/cicconee/cbledger/internal/ledger/repo"
	"github.com/cicconee/cbledger/internal/platform/retry"
)

// debitAttempts tracks why earlier attempts of one Debit call failed.
type debitAttempts struct {
	conflicts      int
	storageRetried bool
	// checkJournal is set after a storage failure: the write may have committed even though the
	// store could not confirm it.
	checkJournal bool
}

// debitRetryPolicy retries lost compare-and-swaps up to maxAttempts times and a storage failure
// exactly once. The retry budget leaves room for both.
func debitRetryPolicy(base retry.Config, maxAttempts int, st *debitAttempts) retry.Config {
	cfg := base
	cfg.MaxAttempts = maxAttempts + 1
	cfg.IsRetryable = func(err error) bool {
		switch {
		case errors.Is(err, errConflict):
			st.conflicts++
			return st.conflicts < maxAttempts
		case errors.Is(err, repo.ErrAccountNotFound),
			errors.Is(err, repo.ErrNegativeBalance),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			return false
		}

		if st.storageRetried {
			return false
		}
		st.storageRetried = true
		st.checkJournal = true
		return true
	}
	return cfg
}
