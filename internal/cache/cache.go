// Package cache addresses and invalidates cached package artifacts.
//
// A package identifier maps deterministically onto one Handle per backend.
// Invalidating a Handle removes exactly that entry: nothing else under the
// cache root is touched, an entry that is already gone is reported as
// AlreadyAbsent and repeated or concurrent invalidations are harmless.
package cache

import (
	"context"
	"fmt"
	"strings"
)

// PackageID names a package within the cache namespace.
// Construct it with ParsePackageID.
type PackageID string

// InvalidIDError reports a package identifier that cannot address a single
// cache entry
type InvalidIDError struct {
	Input  string
	Reason string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid package identifier %q: %s", e.Input, e.Reason)
}

// ParsePackageID validates a raw identifier. Scoped names such as
// "@scope/name" are accepted; anything that could escape its own entry
// under a cache root is not.
func ParsePackageID(raw string) (PackageID, error) {
	invalid := func(reason string) (PackageID, error) {
		return "", &InvalidIDError{Input: raw, Reason: reason}
	}

	if strings.TrimSpace(raw) == "" {
		return invalid("must not be empty")
	}
	if strings.ContainsRune(raw, 0) {
		return invalid("must not contain NUL bytes")
	}
	if strings.ContainsRune(raw, '\\') {
		return invalid("must not contain backslashes")
	}
	if strings.HasPrefix(raw, "/") {
		return invalid("must not be an absolute path")
	}
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "":
			return invalid("must not contain empty path segments")
		case ".", "..":
			return invalid("must not contain relative path segments")
		}
	}
	return PackageID(raw), nil
}

// String returns the identifier text
func (id PackageID) String() string {
	return string(id)
}

// Handle identifies the cache artifact of one package on one backend
type Handle struct {
	Package  PackageID `json:"package"`
	Backend  string    `json:"backend"`
	Location string    `json:"location"` // filesystem path or key
}

func (h Handle) String() string {
	return h.Backend + ":" + h.Location
}

// Outcome classifies an invalidation attempt
type Outcome int

const (
	Removed Outcome = iota
	AlreadyAbsent
	Failed
)

// String returns string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Removed:
		return "removed"
	case AlreadyAbsent:
		return "already_absent"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the result of one invalidation. Err is set only for Failed.
type Result struct {
	Handle  Handle
	Outcome Outcome
	Err     error
}

// OK reports whether the entry is gone, whichever way it got there
func (r Result) OK() bool {
	return r.Outcome == Removed || r.Outcome == AlreadyAbsent
}

// Invalidator removes cache entries from one backend
type Invalidator interface {
	// Locate derives the handle for a package. It is pure and stable
	// across invocations.
	Locate(pkg PackageID) Handle

	// Invalidate removes the entry addressed by h and nothing else.
	// It never returns an error value: storage failures are reported
	// as a Failed result.
	Invalidate(ctx context.Context, h Handle) Result
}
