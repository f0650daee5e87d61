package resolver

import "context"

// VersionCandidate is one entry returned by a VersionLister: a version paired
// with the sources that actually reported it.
type VersionCandidate struct {
	Version Version
	Sources []Source
}

// PreferredVersion is a priority-prefix entry from PreferredVersionLister: a
// pinned, locked, or last-known-good version that is always tried first,
// regardless of ordinary strategy ordering.
type PreferredVersion struct {
	Version Version
	Sources []Source
}

// VersionLister is the "list-versions" oracle (§6): enumerates every version
// of name known to the given sources. Grounded on the teacher's
// sourceBridge.ListVersions/ListPackages narrow-interface idiom (bridge.go) —
// the original source_manager.go implementation is out of scope (a registry
// HTTP client), but the pattern of segregating oracle calls behind a small
// interface is carried over.
type VersionLister interface {
	ListVersions(ctx context.Context, sources []Source, group Group, name Name) ([]VersionCandidate, error)
}

// PreferredVersionLister is the "get-preferred-versions" oracle (§6): a
// priority prefix (pinned/locked/last-known) that is always prepended to the
// strategy-sorted candidate list.
type PreferredVersionLister interface {
	PreferredVersions(ctx context.Context, strategy Strategy, sources []Source, group Group, name Name) ([]PreferredVersion, error)
}

// DetailsFetcher is the "get-package-details" oracle (§6): the authoritative
// per-version record, fetched on demand by the explored-package cache.
type DetailsFetcher interface {
	FetchDetails(ctx context.Context, sources []Source, group Group, name Name, v Version) (Details, error)
}
