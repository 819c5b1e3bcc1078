package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/bustcall/pkg/logging"
)

// Result is the immutable record of one invocation. It is built once when
// the pipeline reaches its outcome and is the source for metrics and the
// summary line.
type Result struct {
	// Identity
	InvocationID string `json:"invocation_id"`
	Package      string `json:"package"`

	// Assessment; empty when the probe failed
	Score  *int   `json:"score,omitempty"`
	Tier   string `json:"tier,omitempty"`
	Action string `json:"action,omitempty"`

	// Remediation
	Backend           string `json:"backend,omitempty"`
	Handle            string `json:"handle,omitempty"`
	Invalidation      string `json:"invalidation,omitempty"` // removed, already_absent, failed, skipped
	InvalidationError string `json:"invalidation_error,omitempty"`
	RestartRequested  bool   `json:"restart_requested"`
	DryRun            bool   `json:"dry_run,omitempty"`

	// Outcome
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`

	// Timing
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
	Duration  time.Duration      `json:"duration_ns"`
	Stages    map[string]float64 `json:"stage_seconds,omitempty"`
}

// NewResult creates a result stamped with a fresh invocation ID
func NewResult(pkg string, startTime, endTime time.Time) *Result {
	return &Result{
		InvocationID: uuid.NewString(),
		Package:      pkg,
		StartTime:    startTime,
		EndTime:      endTime,
		Duration:     endTime.Sub(startTime),
	}
}

// SetStages copies per-stage durations in seconds
func (r *Result) SetStages(stages map[string]time.Duration) {
	if len(stages) == 0 {
		return
	}
	r.Stages = make(map[string]float64, len(stages))
	for name, d := range stages {
		r.Stages[name] = d.Seconds()
	}
}

// Summary renders the one-line human summary
func (r *Result) Summary() string {
	if r.Error != "" {
		return fmt.Sprintf("BUST %s | error=%q | exit=%d | runtime=%s",
			r.Package, r.Error, r.ExitCode, r.Duration.Round(time.Microsecond))
	}

	score := "-"
	if r.Score != nil {
		score = fmt.Sprintf("%d", *r.Score)
	}
	invalidation := r.Invalidation
	if invalidation == "" {
		invalidation = "none"
	}

	return fmt.Sprintf("BUST %s | score=%s | tier=%s | action=%s | invalidation=%s | restart=%t | exit=%d | runtime=%s",
		r.Package, score, r.Tier, r.Action, invalidation, r.RestartRequested, r.ExitCode,
		r.Duration.Round(time.Microsecond))
}

// LogSummary emits the one-line summary at debug level
func (r *Result) LogSummary(logger *logging.Logger) {
	logger.Debug(r.Summary(), map[string]interface{}{"invocation_id": r.InvocationID})
}

// WriteJSON writes the result as indented JSON
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
