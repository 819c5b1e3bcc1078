// Package severity maps integrity scores onto escalation tiers and tiers onto
// remediation actions.
package severity

import (
	"fmt"
	"math"
	"strings"
)

// Score is accumulated evidence of cache corruption for one package.
// Higher is worse.
type Score uint8

// MaxScore is the largest representable score
const MaxScore Score = math.MaxUint8

// Tier is a discrete escalation level. Tiers are ordered by increasing
// remediation strength, so they compare with < and >.
type Tier int

const (
	Ok Tier = iota
	Warning
	Danger
	Critical
	Panic
)

// Tiers lists every tier in ascending order
var Tiers = []Tier{Ok, Warning, Danger, Critical, Panic}

// String returns string representation of the tier
func (t Tier) String() string {
	switch t {
	case Ok:
		return "ok"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	case Critical:
		return "critical"
	case Panic:
		return "panic"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier parses a tier name (case-insensitive)
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return Ok, fmt.Errorf("unknown severity tier %q", s)
}

// Action is the remediation bound to a tier
type Action int

const (
	None Action = iota
	Invalidate
	InvalidateAndRestart
)

// String returns string representation of the action
func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case Invalidate:
		return "invalidate"
	case InvalidateAndRestart:
		return "invalidate+restart"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Invalidates reports whether the action removes the cache entry
func (a Action) Invalidates() bool {
	return a >= Invalidate
}

// Restarts reports whether the action requests a process restart
func (a Action) Restarts() bool {
	return a >= InvalidateAndRestart
}

// ActionFor returns the remediation for a tier. Anything above Danger,
// including values outside the enum, gets the strongest action.
func ActionFor(t Tier) Action {
	switch {
	case t <= Ok:
		return None
	case t <= Danger:
		return Invalidate
	default:
		return InvalidateAndRestart
	}
}
