package resolver

import (
	"context"
	"fmt"
	"sync"
)

// exploredKey identifies one (name, version) exploration.
type exploredKey struct {
	name    string
	version string
}

// exploredEntry is a memoized exploration outcome: either a Resolved package
// or a captured source-unavailable error (§7: "captured per (name, version)
// exploration; the candidate is rejected and the captured exception is
// appended to the resolution's errors").
type exploredEntry struct {
	resolved Resolved
	err      error
}

// exploredCache memoizes (package, version) → resolved-package-record across
// the whole search, per spec.md §3's VersionCache/explored-package-cache
// component. Grounded on the teacher's bridge.go vlists cache, generalized
// from version-list memoization to full per-version exploration memoization.
// Reads and writes happen only in explore, on the driver goroutine during
// the Inner stage; background get-details prefetches are shared through the
// prefetcher's detailsMemo (prefetch.go), not written here. Access is
// guarded by a mutex.
type exploredCache struct {
	mu      sync.Mutex
	entries map[exploredKey]exploredEntry
}

func newExploredCache() *exploredCache {
	return &exploredCache{entries: make(map[exploredKey]exploredEntry)}
}

func keyFor(name Name, v Version) exploredKey {
	return exploredKey{name: name.canon(), version: v.String()}
}

func (c *exploredCache) get(name Name, v Version) (exploredEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[keyFor(name, v)]
	return e, ok
}

func (c *exploredCache) put(name Name, v Version, e exploredEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keyFor(name, v)] = e
}

// explore resolves the (name, version) pair to a Resolved record, using the
// cache on hit and the fetcher (through the work queue's blocking
// get-and-report helper) on miss. globalRestriction is the caller-supplied
// globalFrameworkRestrictions from the top-level Resolve() call; it is
// applied at exploration time via filterByRestrictions, mirroring the
// teacher's bridge.go pairVersion caching dependency metadata once per atom.
//
// The get-details request is obtained through pf's shared requestMemo rather
// than a fresh wq.submitDetails call, so a version the prefetch pipeline
// already kicked off in the background is reused here instead of being
// fetched twice.
//
// acceptedRestriction is the effective framework-restriction of the
// requirement that led to this exploration; it is recorded on the result's
// Settings so spec.md §4.2 step 2 can read it back as
// "exploredPackage.settings.restrictions" when computing this package's own
// children's frontier, instead of re-deriving it from the leading
// requirement a second time.
func (c *exploredCache) explore(ctx context.Context, pf *prefetcher, fetcher DetailsFetcher, sources []Source, group Group, name Name, v Version, globalRestriction, acceptedRestriction Restriction) (Resolved, error) {
	if e, ok := c.get(name, v); ok {
		return e.resolved, e.err
	}

	req := pf.detailsHandle(ctx, sources, name, v, priorityBlockingWork)
	details, err := pf.wq.getAndReport(ctx, req)
	if err != nil {
		wrapped := &SourceUnavailableError{Name: name, Version: v, Cause: err}
		c.put(name, v, exploredEntry{err: wrapped})
		return Resolved{}, wrapped
	}

	d, ok := details.(Details)
	if !ok {
		err := fmt.Errorf("internal: get-details returned unexpected type %T", details)
		c.put(name, v, exploredEntry{err: err})
		return Resolved{}, err
	}

	resolved := Resolved{
		Name:         d.Name,
		Version:      v,
		Dependencies: filterByRestrictions(globalRestriction, d.Dependencies),
		Unlisted:     d.Unlisted,
		Source:       d.Source,
		Settings:     InstallSettings{Restrictions: acceptedRestriction},
	}
	c.put(name, v, exploredEntry{resolved: resolved})
	return resolved, nil
}
