package observe

import "time"

// Timing records when a pipeline started, finished and how long each stage took
type Timing struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Stages      map[string]time.Duration

	now func() time.Time
}

// NewTiming creates timing with current start time
func NewTiming() *Timing {
	return newTimingWithClock(time.Now)
}

func newTimingWithClock(now func() time.Time) *Timing {
	return &Timing{
		StartedAt: now(),
		Stages:    make(map[string]time.Duration),
		now:       now,
	}
}

// Stage starts timing a named stage; call the returned func when it ends
func (t *Timing) Stage(name string) func() {
	start := t.now()
	return func() {
		t.Stages[name] += t.now().Sub(start)
	}
}

// Complete records completion time
func (t *Timing) Complete() {
	t.CompletedAt = t.now()
}

// Duration returns total duration
func (t *Timing) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return t.now().Sub(t.StartedAt)
	}
	return t.CompletedAt.Sub(t.StartedAt)
}
