// Package retry provides exponential backoff for retryable operations,
// such as the client's initial project fetch against a backend that is
// still coming up.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	perrors "github.com/emergent-labs/livedev/internal/errors"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, the
// context is cancelled, or attempts run out. Only transport errors are
// retried.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !perrors.IsRetryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.backoff(attempt)):
		}
	}
}

// backoff returns the delay before the attempt following n: BaseDelay
// doubled per attempt, capped at MaxDelay, jittered to 50-100% when
// configured.
func (cfg Config) backoff(n int) time.Duration {
	delay := cfg.BaseDelay << (n - 1)
	if delay <= 0 || delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter {
		delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
	}
	return delay
}
