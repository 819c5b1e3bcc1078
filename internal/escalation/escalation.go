// Package escalation runs the integrity pipeline for one package:
// probe, classify, then remediate according to the tier.
//
//	ok               -> nothing
//	warning, danger  -> invalidate the cache entry
//	critical, panic  -> invalidate, then request a process restart
//
// The controller decides; it never exits the process. Termination happens
// inside the restart.Signal supplied by the entry point.
package escalation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/psantana5/bustcall/internal/cache"
	"github.com/psantana5/bustcall/internal/observe"
	"github.com/psantana5/bustcall/internal/probe"
	"github.com/psantana5/bustcall/internal/report"
	"github.com/psantana5/bustcall/internal/restart"
	"github.com/psantana5/bustcall/internal/severity"
	"github.com/psantana5/bustcall/pkg/logging"
	"github.com/psantana5/bustcall/pkg/tracing"
)

// Process exit codes
const (
	ExitOK = 0

	// ExitRestart asks the supervisor to relaunch the process.
	ExitRestart = 1

	// ExitInvalidInput is used when the package argument is missing or
	// malformed and the pipeline never ran.
	ExitInvalidInput = 1

	// ExitPipelineFailure means something is broken (probe error, bad
	// configuration) rather than a restart being wanted.
	ExitPipelineFailure = 2
)

// Outcome is what one invocation produced
type Outcome struct {
	Package          cache.PackageID
	Score            severity.Score
	Tier             severity.Tier
	Action           severity.Action
	Invalidation     *cache.Result // nil when no invalidation was attempted
	RestartRequested bool
	ExitCode         int
	Err              error // set only when the pipeline aborted

	Result *report.Result
}

// Config wires the controller's collaborators
type Config struct {
	Probe       probe.Probe
	Thresholds  severity.Thresholds
	Invalidator cache.Invalidator
	Restart     restart.Signal

	Logger  *logging.Logger
	Metrics *report.Metrics
	Tracer  trace.Tracer

	// DryRun classifies and reports without invalidating or restarting
	DryRun bool

	// OnResult receives the recorded result before any restart is requested
	OnResult func(*report.Result)
}

// Controller maps a package's integrity onto remediation
type Controller struct {
	probe       probe.Probe
	thresholds  severity.Thresholds
	invalidator cache.Invalidator
	restart     restart.Signal
	logger      *logging.Logger
	metrics     *report.Metrics
	tracer      trace.Tracer
	dryRun      bool
	onResult    func(*report.Result)
}

// New creates a controller. Probe, Invalidator and Restart are required;
// zero Thresholds mean the default table.
func New(cfg Config) (*Controller, error) {
	if cfg.Probe == nil {
		return nil, errors.New("escalation: probe is required")
	}
	if cfg.Invalidator == nil {
		return nil, errors.New("escalation: invalidator is required")
	}
	if cfg.Restart == nil {
		return nil, errors.New("escalation: restart signal is required")
	}

	th := cfg.Thresholds
	if th == (severity.Thresholds{}) {
		th = severity.DefaultThresholds()
	}
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("escalation: %w", err)
	}

	c := &Controller{
		probe:       cfg.Probe,
		thresholds:  th,
		invalidator: cfg.Invalidator,
		restart:     cfg.Restart,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
		dryRun:      cfg.DryRun,
		onResult:    cfg.OnResult,
	}
	if c.logger == nil {
		c.logger = logging.NewLogger(logging.INFO, false)
	}
	if c.metrics == nil {
		c.metrics = report.NewMetrics()
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("bustcall")
	}
	return c, nil
}

// Handle runs the pipeline for one package. On the restart path the
// restart signal is the last thing called; production signals do not
// return.
func (c *Controller) Handle(ctx context.Context, pkg cache.PackageID) Outcome {
	timing := observe.NewTiming()
	log := c.logger.WithField("package", pkg.String())

	ctx, span := c.tracer.Start(ctx, "bustcall.handle",
		trace.WithAttributes(attribute.String("bustcall.package", pkg.String())))

	out := Outcome{Package: pkg}

	score, err := c.assess(ctx, pkg, timing)
	if err != nil {
		log.Error("integrity probe failed; no tier assumed", map[string]interface{}{"error": err.Error()})
		out.ExitCode = ExitPipelineFailure
		out.Err = err
		tracing.SetError(ctx, err)
		c.finish(&out, timing, log)
		span.End()
		return out
	}

	out.Score = score
	out.Tier = c.thresholds.Classify(score)
	out.Action = severity.ActionFor(out.Tier)

	span.SetAttributes(
		attribute.Int("bustcall.score", int(score)),
		attribute.String("bustcall.tier", out.Tier.String()),
		attribute.String("bustcall.action", out.Action.String()),
	)

	fields := map[string]interface{}{
		"score":  int(score),
		"tier":   out.Tier.String(),
		"action": out.Action.String(),
	}

	switch {
	case !out.Action.Invalidates():
		log.Info("cache OK, no action taken", fields)
	case c.dryRun:
		// Nothing is removed or restarted, so nothing is logged as fatal.
		log.Warn(out.Tier.String()+" level detected, dry run: cache left in place, no restart", fields)
		out.Invalidation = c.invalidate(ctx, pkg, timing, log)
	case !out.Action.Restarts():
		log.Warn("warning or danger level detected, busting cache", fields)
		out.Invalidation = c.invalidate(ctx, pkg, timing, log)
	default:
		log.Fatal("critical or panic level detected, busting cache and forcing restart", fields)
		out.Invalidation = c.invalidate(ctx, pkg, timing, log)
		out.RestartRequested = true
		out.ExitCode = ExitRestart
		tracing.AddEvent(ctx, "restart.requested", attribute.String("bustcall.tier", out.Tier.String()))
	}

	c.finish(&out, timing, log)
	span.End()

	if out.RestartRequested {
		c.restart.RequestRestart(ctx, out.Tier)
	}
	return out
}

func (c *Controller) assess(ctx context.Context, pkg cache.PackageID, timing *observe.Timing) (severity.Score, error) {
	ctx, span := c.tracer.Start(ctx, "probe.assess")
	defer span.End()
	defer timing.Stage("probe")()

	score, err := c.probe.Assess(ctx, pkg.String())
	if err != nil {
		tracing.SetError(ctx, err)
		return 0, err
	}
	return score, nil
}

// invalidate never fails the pipeline: the tier is already fixed
func (c *Controller) invalidate(ctx context.Context, pkg cache.PackageID, timing *observe.Timing, log *logging.Logger) *cache.Result {
	h := c.invalidator.Locate(pkg)

	if c.dryRun {
		log.Debug("dry run, invalidation skipped", map[string]interface{}{"handle": h.String()})
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "cache.invalidate",
		trace.WithAttributes(attribute.String("bustcall.handle", h.String())))
	defer span.End()
	defer timing.Stage("invalidate")()

	log.Info("busting cache", map[string]interface{}{"handle": h.String()})
	res := c.invalidator.Invalidate(ctx, h)
	span.SetAttributes(attribute.String("bustcall.invalidation", res.Outcome.String()))

	switch res.Outcome {
	case cache.Removed:
		log.Info("cache entry removed", map[string]interface{}{"handle": h.String()})
	case cache.AlreadyAbsent:
		log.Info("cache entry not found or already clean", map[string]interface{}{"handle": h.String()})
	default:
		if res.Err != nil {
			tracing.SetError(ctx, res.Err)
		}
		log.Warn("cache invalidation failed; tier and action unchanged", map[string]interface{}{
			"handle": h.String(),
			"error":  fmt.Sprint(res.Err),
		})
	}
	return &res
}

// finish freezes the outcome into a report.Result and records it
func (c *Controller) finish(out *Outcome, timing *observe.Timing, log *logging.Logger) {
	timing.Complete()

	r := report.NewResult(out.Package.String(), timing.StartedAt, timing.CompletedAt)
	r.SetStages(timing.Stages)
	r.ExitCode = out.ExitCode
	r.DryRun = c.dryRun

	if out.Err != nil {
		r.Error = out.Err.Error()
	} else {
		score := int(out.Score)
		r.Score = &score
		r.Tier = out.Tier.String()
		r.Action = out.Action.String()
		r.RestartRequested = out.RestartRequested

		switch {
		case out.Invalidation != nil:
			r.Backend = out.Invalidation.Handle.Backend
			r.Handle = out.Invalidation.Handle.String()
			r.Invalidation = out.Invalidation.Outcome.String()
			if out.Invalidation.Err != nil {
				r.InvalidationError = out.Invalidation.Err.Error()
			}
		case c.dryRun && out.Action.Invalidates():
			r.Invalidation = report.InvalidationSkipped
		}
	}

	c.metrics.RecordResult(r)
	r.LogSummary(log)
	out.Result = r
	if c.onResult != nil {
		c.onResult(r)
	}
}
