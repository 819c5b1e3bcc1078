// Package restart requests a relaunch of the current process.
//
// The controller decides that a restart is needed; a Signal carries that
// decision out. In production the Signal terminates the process with a
// reserved exit status so an external supervisor starts a fresh instance.
package restart

import (
	"context"
	"sync"

	"github.com/psantana5/bustcall/internal/severity"
	"github.com/psantana5/bustcall/pkg/logging"
)

// Signal asks the hosting process to restart.
// Production implementations do not return.
type Signal interface {
	RequestRestart(ctx context.Context, reason severity.Tier)
}

// ProcessSignal logs a fatal diagnostic and exits with Code
type ProcessSignal struct {
	Logger *logging.Logger
	Code   int

	// Exit terminates the process. The entry point supplies a function
	// that flushes its outputs and calls os.Exit.
	Exit func(code int)

	// Detect finds the supervising parent; nil skips detection
	Detect func() Supervisor
}

// RequestRestart implements Signal
func (p *ProcessSignal) RequestRestart(ctx context.Context, reason severity.Tier) {
	fields := map[string]interface{}{
		"tier":      reason.String(),
		"exit_code": p.Code,
	}

	if p.Detect != nil {
		sup := p.Detect()
		fields["parent"] = sup.Name
		fields["parent_pid"] = sup.PID
		if !sup.Known {
			p.Logger.Warn("no known supervisor is watching this process; restart relies on the caller", fields)
		}
	}

	p.Logger.Fatal("restarting process due to fatal cache corruption", fields)
	p.Exit(p.Code)
}

// Recorder is a Signal that records requests instead of exiting
type Recorder struct {
	mu      sync.Mutex
	reasons []severity.Tier
}

// RequestRestart implements Signal
func (r *Recorder) RequestRestart(ctx context.Context, reason severity.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

// Calls returns the number of restart requests
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

// Reasons returns the tiers of all requests in order
func (r *Recorder) Reasons() []severity.Tier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]severity.Tier(nil), r.reasons...)
}
