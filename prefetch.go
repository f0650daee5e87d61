package resolver

import (
	"context"
	"sync"
)

// memoKey identifies one outstanding oracle request for deduplication
// purposes: (sources, name[, version]).
type memoKey struct {
	sources string
	name    string
	version string
}

func sourcesKey(srcs []Source) string {
	s := ""
	for _, src := range srcs {
		s += src.URL + ";"
	}
	return s
}

// requestMemo is the "shared request memoization" primitive from §4.8/§9: a
// concurrent mapping keyed by (sources, name, version?) whose values are
// request handles, so concurrent prefetch submissions for the same key share
// one outstanding request instead of resubmitting it under a new priority.
// There is no direct teacher analogue; built in the idiom of bridge.go's
// breakLock CAS-gated one-shot kickoff — the first submitter wins the race
// to create the entry, everyone else observes it.
type requestMemo struct {
	mu      sync.Mutex
	entries map[memoKey]*requestHandle
}

func newRequestMemo() *requestMemo {
	return &requestMemo{entries: make(map[memoKey]*requestHandle)}
}

func (m *requestMemo) getOrSubmit(key memoKey, submit func() *requestHandle) *requestHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.entries[key]; ok {
		return h
	}
	h := submit()
	m.entries[key] = h
	return h
}

// prefetcher drives the background prefetch pipeline described in §4.8: on
// accepting an exploration, schedule a background list-versions request for
// each dependency, raise it to LikelyRequired once scheduled, and once
// versions resolve, submit get-details for up to two representative
// versions plus up to ten more speculative ones.
type prefetcher struct {
	wq         *workQueue
	versionMemo *requestMemo
	detailsMemo *requestMemo
	group      Group
}

func newPrefetcher(wq *workQueue, group Group) *prefetcher {
	return &prefetcher{
		wq:          wq,
		versionMemo: newRequestMemo(),
		detailsMemo: newRequestMemo(),
		group:       group,
	}
}

// schedule kicks off background work for each dependency edge of a freshly
// explored package. It does not block; results land in the memo tables for
// later synchronous lookup via getAndReport.
func (pf *prefetcher) schedule(ctx context.Context, deps []DependencyEdge, sources []Source) {
	for _, d := range deps {
		d := d
		vkey := memoKey{sources: sourcesKey(sources), name: d.Name.canon()}
		vh := pf.versionMemo.getOrSubmit(vkey, func() *requestHandle {
			return pf.wq.submitVersions(ctx, sources, pf.group, d.Name, priorityBackgroundWork)
		})
		vh.TryReprioritize(true, priorityLikelyRequired)

		go pf.followUpDetails(ctx, vh, d, sources)
	}
}

// followUpDetails waits (without blocking the driver — this runs on its own
// goroutine) for a dependency's version list, then submits get-details
// requests for the first in-range-with-prereleases version and the first
// strict-in-range version at LikelyRequired, plus up to ten more at
// MightBeRequired.
func (pf *prefetcher) followUpDetails(ctx context.Context, vh *requestHandle, dep DependencyEdge, sources []Source) {
	select {
	case <-vh.item.done:
	case <-ctx.Done():
		return
	}
	if vh.item.err != nil {
		return
	}
	candidates, ok := vh.item.result.([]VersionCandidate)
	if !ok {
		return
	}

	var likely []VersionCandidate
	var rest []VersionCandidate
	sawStrict, sawLoose := false, false
	for _, c := range candidates {
		switch {
		case !sawLoose && dep.VersionReq.InRange(c.Version, true):
			sawLoose = true
			if dep.VersionReq.InRange(c.Version, false) {
				sawStrict = true
			}
			likely = append(likely, c)
		case !sawStrict && dep.VersionReq.InRange(c.Version, false):
			sawStrict = true
			likely = append(likely, c)
		default:
			rest = append(rest, c)
		}
	}

	for _, c := range likely {
		pf.submitDetails(ctx, c, dep.Name, sources, priorityLikelyRequired)
	}
	for i, c := range rest {
		if i >= 10 {
			break
		}
		pf.submitDetails(ctx, c, dep.Name, sources, priorityMightBeRequired)
	}
}

func (pf *prefetcher) submitDetails(ctx context.Context, c VersionCandidate, name Name, sources []Source, p priority) *requestHandle {
	return pf.detailsHandle(ctx, sources, name, c.Version, p)
}

// versionsHandle is the shared entry point for both the background prefetch
// path and the driver's synchronous oracle calls (§4.8/§9's "shared request
// memoization... mandatory for the prefetch pipeline — otherwise the
// resolver re-submits the same remote call under different priorities"): a
// list-versions request for a given (sources, name) is submitted at most
// once, however many times it is asked for. A caller on the driver's hot
// path can still raise a request that was originally scheduled as a
// background prefetch up to BlockingWork.
func (pf *prefetcher) versionsHandle(ctx context.Context, sources []Source, name Name, p priority) *requestHandle {
	key := memoKey{sources: sourcesKey(sources), name: name.canon()}
	h := pf.versionMemo.getOrSubmit(key, func() *requestHandle {
		return pf.wq.submitVersions(ctx, sources, pf.group, name, p)
	})
	h.TryReprioritize(true, p)
	return h
}

// detailsHandle is detailsMemo's equivalent of versionsHandle: a
// get-details request for a given (sources, name, version) is submitted at
// most once, shared between prefetch follow-ups and the driver's
// synchronous exploration of the same candidate.
func (pf *prefetcher) detailsHandle(ctx context.Context, sources []Source, name Name, v Version, p priority) *requestHandle {
	key := memoKey{sources: sourcesKey(sources), name: name.canon(), version: v.String()}
	h := pf.detailsMemo.getOrSubmit(key, func() *requestHandle {
		return pf.wq.submitDetails(ctx, sources, pf.group, name, v, p)
	})
	h.TryReprioritize(true, p)
	return h
}
