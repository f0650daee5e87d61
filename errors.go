package resolver

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// traceError is the common introspection surface for this package's typed
// errors: a one-line message (via error.Error) plus a longer trace-style
// rendering used in conflict reports. Grounded on the teacher's errors.go
// traceError interface, generalized from gps's many project/package failure
// variants down to the four categories spec.md §7 actually names.
type traceError interface {
	error
	traceString() string
}

// ConflictError is the expected resolution-failure outcome (§7: "expected
// resolution failure; yields a Conflict result with a printable report").
// It is produced by the state machine and returned embedded in a Resolution,
// not raised as a panic from deep in the search.
type ConflictError struct {
	Requirements []Requirement
	Name         Name
	Available    []VersionCache
	Resolved     map[string]Resolved

	// TryRelaxed carries §4.3's "try-relaxed = true" signal: at least one
	// candidate selection during this search found a non-empty
	// prerelease-admitted fallback outside relaxed mode. Resolve() uses it
	// to decide whether a failed strict pass is worth one relaxed retry.
	TryRelaxed bool
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("no version of %s satisfies all requirements", e.Name)
}

func (e *ConflictError) traceString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not resolve %s:\n", e.Name)
	fmt.Fprintf(&b, "  resolved so far:\n")
	names := make([]string, 0, len(e.Resolved))
	for n := range e.Resolved {
		names = append(names, n)
	}
	sortStrings(names)
	for _, n := range names {
		r := e.Resolved[n]
		fmt.Fprintf(&b, "    %s -> %s\n", r.Name, r.Version)
	}
	fmt.Fprintf(&b, "  conflicting requirements on %s:\n", e.Name)
	for _, r := range e.Requirements {
		anno := ""
		if !r.VersionReq.Prereleases.isAllReleases() {
			anno = " (prereleases admitted)"
		}
		fmt.Fprintf(&b, "    %s requires %s%s\n", r.Parent, r.VersionReq, anno)
	}
	if len(e.Available) == 0 {
		fmt.Fprintf(&b, "  no versions available for %s\n", e.Name)
	} else {
		fmt.Fprintf(&b, "  available versions:\n")
		for _, v := range e.Available {
			fmt.Fprintf(&b, "    %s\n", v.Version)
		}
	}
	return b.String()
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

// SourceUnavailableError is captured per (name, version) exploration (§7):
// it rejects that one candidate without poisoning the whole search, and is
// appended to the resolution's accumulated non-fatal errors.
type SourceUnavailableError struct {
	Name    Name
	Version Version
	Cause   error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable fetching %s@%s: %v", e.Name, e.Version, e.Cause)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Cause }

func (e *SourceUnavailableError) traceString() string {
	return errors.Wrapf(e.Cause, "exploring %s@%s", e.Name, e.Version).Error()
}

// OracleTimeoutError wraps the source URLs an oracle request was waiting on
// when the blocking get-and-report helper gave up. Terse is set when
// get-and-report is called again on a handle that already timed out; that
// call returns at once without waiting, per §4.8's "not waiting again" rule.
type OracleTimeoutError struct {
	Name    Name
	Sources []Source
	Terse   bool
}

func (e *OracleTimeoutError) Error() string {
	if e.Terse {
		return fmt.Sprintf("timed out waiting for %s: not waiting again", e.Name)
	}
	urls := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		urls[i] = s.URL
	}
	return fmt.Sprintf("timed out waiting for %s from sources [%s]", e.Name, strings.Join(urls, ", "))
}

func (e *OracleTimeoutError) traceString() string { return e.Error() }

// InvariantViolation signals a bug, not a user-recoverable condition (§7):
// the new-open-equals-old-open endless-loop guard is the canonical source.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return "resolver invariant violated: " + e.Detail
}

func (e *InvariantViolation) traceString() string { return e.Error() }
