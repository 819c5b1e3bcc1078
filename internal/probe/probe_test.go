package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/bustcall/internal/severity"
	"github.com/psantana5/bustcall/pkg/retry"
)

func TestStatic(t *testing.T) {
	score, err := Static(10).Assess(context.Background(), "left-pad")
	require.NoError(t, err)
	assert.Equal(t, severity.Score(10), score)
}

func TestStaticCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Static(1).Assess(ctx, "left-pad")

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "left-pad", perr.Package)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPatternDefaultRules(t *testing.T) {
	p, err := NewPattern(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		pkg  string
		want severity.Score
	}{
		{"left-pad", 1},
		{"warn-pkg", 5},
		{"corrupt-pkg", 10},
		{"corrupt-warn", 10}, // first rule wins
		{"@scope/forewarned", 5},
	}

	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			got, err := p.Assess(context.Background(), tt.pkg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := p.Assess(context.Background(), tt.pkg)
			require.NoError(t, err)
			assert.Equal(t, got, again, "repeated assessment must be idempotent")
		})
	}
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name    string
		rules   Rules
		wantErr bool
	}{
		{"default", DefaultRules(), false},
		{"no rules", Rules{Default: 0}, false},
		{"negative default", Rules{Default: -1}, true},
		{"default too large", Rules{Default: 256}, true},
		{"empty contains", Rules{Rules: []Rule{{Contains: "", Score: 3}}}, true},
		{"rule too large", Rules{Rules: []Rule{{Contains: "x", Score: 300}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewPattern(Rules{Default: 999})
	assert.Error(t, err)
}

func TestExampleRulesMatchDefaults(t *testing.T) {
	rules, err := ParseRules([]byte(ExampleRules))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: 0\nrules:\n  - contains: stale\n    score: 8\n"), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	p, err := NewPattern(rules)
	require.NoError(t, err)

	score, err := p.Assess(context.Background(), "stale-lockfile")
	require.NoError(t, err)
	assert.Equal(t, severity.Score(8), score)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rules:\n  - contains: \"\"\n    score: 1\n"), 0644))
	_, err = LoadRules(bad)
	assert.Error(t, err)
}

func fastRetry(n int) retry.Config {
	return retry.Config{MaxRetries: n, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
}

func TestRetryingRecoversFromTransientErrors(t *testing.T) {
	calls := 0
	flaky := ProbeFunc(func(ctx context.Context, pkg string) (severity.Score, error) {
		calls++
		if calls == 1 {
			return 0, &Error{Package: pkg, Probe: "flaky", Transient: true, Err: errors.New("storage busy")}
		}
		return 7, nil
	})

	r := &Retrying{Probe: flaky, Retry: fastRetry(2)}
	score, err := r.Assess(context.Background(), "left-pad")

	require.NoError(t, err)
	assert.Equal(t, severity.Score(7), score)
	assert.Equal(t, 2, calls)
}

func TestRetryingDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	broken := ProbeFunc(func(ctx context.Context, pkg string) (severity.Score, error) {
		calls++
		return 0, &Error{Package: pkg, Probe: "broken", Err: ErrNoScore}
	})

	r := &Retrying{Probe: broken, Retry: fastRetry(3)}
	_, err := r.Assess(context.Background(), "left-pad")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoScore)
	assert.Equal(t, 1, calls)
}

func TestRetryingBoundsEachAttempt(t *testing.T) {
	calls := 0
	slow := ProbeFunc(func(ctx context.Context, pkg string) (severity.Score, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	r := &Retrying{Probe: slow, Timeout: 5 * time.Millisecond, Retry: fastRetry(2)}

	start := time.Now()
	_, err := r.Assess(context.Background(), "left-pad")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
