package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
	IsRetryable func(error) bool

	// OnRetry is called after a failed attempt that will be retried, before the backoff sleep.
	OnRetry func(attempt int, err error)
}

func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()

	if cfg.MaxAttempts > 0 {
		def.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		def.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		def.MaxDelay = cfg.MaxDelay
	}
	if cfg.Jitter > 0 {
		def.Jitter = cfg.Jitter
	}
	if cfg.IsRetryable != nil {
		def.IsRetryable = cfg.IsRetryable
	}
	def.OnRetry = cfg.OnRetry

	return def
}

// Do runs fn until it succeeds, returns a non-retryable error, or MaxAttempts is reached. The last
// error from fn is returned unchanged so callers can classify it with errors.Is.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg = normalizeConfig(cfg)

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.IsRetryable(err) {
			return err
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		sleep := backoffDelay(cfg.BaseDelay, cfg.MaxDelay, attempt)
		if cfg.Jitter > 0 {
			sleep = applyJitter(sleep, cfg.Jitter)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func backoffDelay(baseDelay time.Duration, maxDelay time.Duration, attempt int) time.Duration {
	backoff := baseDelay << (attempt - 1)
	if backoff > maxDelay || backoff <= 0 {
		return maxDelay
	}
	return backoff
}

func applyJitter(delay time.Duration, jitter time.Duration) time.Duration {
	// Int64N(2j+1) - j lands in [-j, j].
	delta := time.Duration(rand.Int64N(int64(jitter)*2+1)) - jitter
	res := delay + delta
	if res < 0 {
		return 0
	}
	return res
}
