package severity

import "fmt"

// Thresholds holds the lowest score of each tier above Ok. Ok always starts
// at 0 and Panic always extends to MaxScore, so any table that passes
// Validate partitions the whole Score domain.
type Thresholds struct {
	Warning  Score `yaml:"warning" json:"warning"`
	Danger   Score `yaml:"danger" json:"danger"`
	Critical Score `yaml:"critical" json:"critical"`
	Panic    Score `yaml:"panic" json:"panic"`
}

// DefaultThresholds returns the reference table:
// 0-3 ok, 4-6 warning, 7-9 danger, 10-11 critical, 12+ panic.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:  4,
		Danger:   7,
		Critical: 10,
		Panic:    12,
	}
}

// Validate checks 0 < warning < danger < critical < panic
func (th Thresholds) Validate() error {
	if th.Warning == 0 {
		return fmt.Errorf("warning threshold must be > 0, otherwise the ok tier is empty")
	}
	if th.Danger <= th.Warning {
		return fmt.Errorf("danger threshold %d must be greater than warning threshold %d", th.Danger, th.Warning)
	}
	if th.Critical <= th.Danger {
		return fmt.Errorf("critical threshold %d must be greater than danger threshold %d", th.Critical, th.Danger)
	}
	if th.Panic <= th.Critical {
		return fmt.Errorf("panic threshold %d must be greater than critical threshold %d", th.Panic, th.Critical)
	}
	return nil
}

// Classify maps a score onto its tier. It is total: the final branch catches
// every score at or above the panic threshold, and a score can never fall
// through without a tier.
func (th Thresholds) Classify(s Score) Tier {
	switch {
	case s < th.Warning:
		return Ok
	case s < th.Danger:
		return Warning
	case s < th.Critical:
		return Danger
	case s < th.Panic:
		return Critical
	default:
		return Panic
	}
}

// Range is the inclusive score range of one tier
type Range struct {
	Tier Tier
	Min  Score
	Max  Score
}

// String formats the range the way operators read it ("10-11", "12+")
func (r Range) String() string {
	switch {
	case r.Max == MaxScore && r.Min != MaxScore:
		return fmt.Sprintf("%d+", r.Min)
	case r.Min == r.Max:
		return fmt.Sprintf("%d", r.Min)
	default:
		return fmt.Sprintf("%d-%d", r.Min, r.Max)
	}
}

// Ranges returns the inclusive range of every tier in ascending order.
// Only meaningful for thresholds that pass Validate.
func (th Thresholds) Ranges() []Range {
	return []Range{
		{Tier: Ok, Min: 0, Max: th.Warning - 1},
		{Tier: Warning, Min: th.Warning, Max: th.Danger - 1},
		{Tier: Danger, Min: th.Danger, Max: th.Critical - 1},
		{Tier: Critical, Min: th.Critical, Max: th.Panic - 1},
		{Tier: Panic, Min: th.Panic, Max: MaxScore},
	}
}

// Classify maps a score with the default thresholds
func Classify(s Score) Tier {
	return DefaultThresholds().Classify(s)
}
