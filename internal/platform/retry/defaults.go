package retry

import "time"

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 20 * time.Millisecond
	DefaultMaxDelay    = 250 * time.Millisecond
	DefaultJitter      = 10 * time.Millisecond
)

func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
		IsRetryable: func(error) bool { return true },
	}
}
