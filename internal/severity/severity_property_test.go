package severity_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/psantana5/bustcall/internal/severity"
)

// genThresholds generates strictly increasing threshold tables
func genThresholds() gopter.Gen {
	return gen.SliceOfN(4, gen.UInt8Range(1, 63)).Map(func(steps []uint8) severity.Thresholds {
		w := severity.Score(steps[0])
		d := w + severity.Score(steps[1])
		c := d + severity.Score(steps[2])
		p := c + severity.Score(steps[3])
		return severity.Thresholds{Warning: w, Danger: d, Critical: c, Panic: p}
	})
}

func TestClassifierProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every score maps to exactly one range", prop.ForAll(
		func(th severity.Thresholds, s uint8) bool {
			score := severity.Score(s)
			matches := 0
			for _, r := range th.Ranges() {
				if score >= r.Min && score <= r.Max {
					if th.Classify(score) != r.Tier {
						return false
					}
					matches++
				}
			}
			return matches == 1
		},
		genThresholds(),
		gen.UInt8(),
	))

	properties.Property("higher score never yields a weaker tier", prop.ForAll(
		func(th severity.Thresholds, a, b uint8) bool {
			if a > b {
				a, b = b, a
			}
			return th.Classify(severity.Score(b)) >= th.Classify(severity.Score(a))
		},
		genThresholds(),
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.Property("higher tier never yields a weaker action", prop.ForAll(
		func(a, b int) bool {
			ta, tb := severity.Tier(a), severity.Tier(b)
			if ta > tb {
				ta, tb = tb, ta
			}
			return severity.ActionFor(tb) >= severity.ActionFor(ta)
		},
		gen.IntRange(int(severity.Ok), int(severity.Panic)),
		gen.IntRange(int(severity.Ok), int(severity.Panic)),
	))

	properties.Property("generated tables validate", prop.ForAll(
		func(th severity.Thresholds) bool {
			return th.Validate() == nil
		},
		genThresholds(),
	))

	properties.TestingRun(t)
}
