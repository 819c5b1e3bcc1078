package probe

import (
	"context"
	"time"

	"github.com/psantana5/bustcall/internal/severity"
	"github.com/psantana5/bustcall/pkg/retry"
)

// Retrying bounds a probe in time. Each attempt gets its own timeout and
// transient failures are retried a fixed number of times, so Assess always
// returns within roughly (MaxRetries+1)*Timeout plus backoff.
type Retrying struct {
	Probe   Probe
	Timeout time.Duration // per attempt; 0 means no per-attempt deadline
	Retry   retry.Config
}

// Assess implements Probe
func (r *Retrying) Assess(ctx context.Context, pkg string) (severity.Score, error) {
	var score severity.Score
	err := retry.Do(ctx, r.Retry, func(ctx context.Context) error {
		attemptCtx := ctx
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}

		s, err := r.Probe.Assess(attemptCtx, pkg)
		if err != nil {
			// An attempt that ran out of its own time is worth repeating
			// as long as the caller's deadline has not passed.
			if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return &Error{Package: pkg, Probe: "retrying", Transient: true, Err: err}
			}
			return err
		}
		score = s
		return nil
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}
