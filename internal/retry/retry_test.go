package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/emergent-labs/livedev/internal/errors"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransportErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return perrors.Newf(perrors.KindTransport, "dial", "connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return perrors.Newf(perrors.KindTransport, "dial", "still down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, perrors.KindTransport, perrors.KindOf(err))
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	cfg := Config{BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

	assert.Equal(t, time.Millisecond, cfg.backoff(1))
	assert.Equal(t, 2*time.Millisecond, cfg.backoff(2))
	assert.Equal(t, 4*time.Millisecond, cfg.backoff(3))
	assert.Equal(t, 4*time.Millisecond, cfg.backoff(4))
	// Shift overflow falls back to the cap.
	assert.Equal(t, 4*time.Millisecond, cfg.backoff(80))
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	cfg := Config{BaseDelay: 8 * time.Millisecond, MaxDelay: 8 * time.Millisecond, Jitter: true}

	for i := 0; i < 50; i++ {
		d := cfg.backoff(1)
		assert.GreaterOrEqual(t, d, 4*time.Millisecond)
		assert.LessOrEqual(t, d, 8*time.Millisecond)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Config{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second},
		func(ctx context.Context) error {
			return perrors.Newf(perrors.KindTransport, "dial", "down")
		})
	assert.ErrorIs(t, err, context.Canceled)
}
