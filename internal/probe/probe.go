// Package probe defines the integrity probe contract and reference probes.
//
// A probe turns a package identifier into a severity.Score. Implementations
// must be side-effect-free, finish in bounded time and return the same score
// for the same package while the cache is unchanged. How a real probe
// computes its score (hashing, structural checks, provenance) is up to the
// implementation.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/psantana5/bustcall/internal/severity"
)

// Probe assesses the integrity of one package's cache entry
type Probe interface {
	Assess(ctx context.Context, pkg string) (severity.Score, error)
}

// ProbeFunc adapts a function to the Probe interface
type ProbeFunc func(ctx context.Context, pkg string) (severity.Score, error)

// Assess implements Probe
func (f ProbeFunc) Assess(ctx context.Context, pkg string) (severity.Score, error) {
	return f(ctx, pkg)
}

// ErrNoScore is returned by probes that have no evidence to score a package
var ErrNoScore = errors.New("probe produced no score")

// Error is a probe failure for one package
type Error struct {
	Package   string
	Probe     string
	Transient bool // another attempt may succeed
	Err       error
}

// Error implements error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s probe failed for %q: %v", e.Probe, e.Package, e.Err)
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether a retry may succeed
func (e *Error) Temporary() bool {
	return e.Transient
}

// Static returns the same score for every package
type Static severity.Score

// Assess implements Probe
func (s Static) Assess(ctx context.Context, pkg string) (severity.Score, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Package: pkg, Probe: "static", Err: err}
	}
	return severity.Score(s), nil
}
