package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tempErr bool

func (e tempErr) Error() string   { return "probe backend unavailable" }
func (e tempErr) Temporary() bool { return bool(e) }

func fastConfig(retries int) Config {
	return Config{
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return tempErr(true)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAtMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(2), func(context.Context) error {
		calls++
		return tempErr(true)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
	assert.True(t, errors.Is(err, tempErr(true)))
}

func TestDoReturnsPermanentErrorImmediately(t *testing.T) {
	calls := 0
	perm := tempErr(false)
	err := Do(context.Background(), fastConfig(5), func(context.Context) error {
		calls++
		return perm
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, perm, err)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(3), func(context.Context) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaxElapsed(t *testing.T) {
	cfg := Config{MaxRetries: 4, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}

	// 100 + 200 + 300 + 300
	assert.Equal(t, 900*time.Millisecond, cfg.MaxElapsed())
	assert.Equal(t, time.Duration(0), Config{}.MaxElapsed())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"temporary", tempErr(true), true},
		{"not temporary", tempErr(false), false},
		{"deadline", context.DeadlineExceeded, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"permission", errors.New("open /tmp/cache/x: permission denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
