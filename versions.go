package resolver

import (
	"context"
	"sort"
)

// VersionCache is the spec's (version, candidate-sources, assumed-version?)
// triple (§3). assumed = true means the version was never reported by any
// source but was synthesized to honour a pinned requirement.
type VersionCache struct {
	Version Version
	Sources []Source
	Assumed bool
}

// filteredEntry is a step's per-name filtered-versions record: the candidate
// list already produced for this name on this path, plus whether it was
// produced under a global override (in which case it is never re-filtered).
type filteredEntry struct {
	Versions       []VersionCache
	GlobalOverride bool
}

// chooseStrategy implements §4.4's resolver-strategy selection.
//
// current is the requirement under consideration; sameName is every open
// requirement sharing its name (including current); globalDirect and
// globalTransitive are the top-level Resolve() parameters.
func chooseStrategy(current Requirement, sameName []Requirement, globalDirect, globalTransitive Strategy) Strategy {
	if current.isRoot() && len(sameName) == 1 {
		return current.StrategyOverride.combine(globalDirect).orDefault(StrategyMax)
	}

	sorted := make([]Requirement, len(sameName))
	copy(sorted, sameName)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		aGlobal := a.TransitiveStrategyOverride == globalTransitive
		bGlobal := b.TransitiveStrategyOverride == globalTransitive
		if aGlobal != bGlobal {
			return aGlobal
		}
		aMax := a.TransitiveStrategyOverride == StrategyMax
		bMax := b.TransitiveStrategyOverride == StrategyMax
		return aMax && !bMax
	})

	var folded Strategy = StrategyUnset
	for _, r := range sorted {
		folded = folded.combine(r.TransitiveStrategyOverride)
	}
	return folded.combine(globalTransitive).orDefault(StrategyMax)
}

// orderCandidates sorts vcs per the chosen strategy and prepends the
// oracle-supplied preferred versions, per §4.3's closing "Ordering within
// candidates" rule. A preferred version already in vcs is moved to the
// front; one not present in vcs is inserted as a non-assumed candidate
// carrying its reported sources.
func orderCandidates(vcs []VersionCache, strat Strategy, preferred []PreferredVersion) []VersionCache {
	out := make([]VersionCache, len(vcs))
	copy(out, vcs)
	sort.SliceStable(out, func(i, j int) bool {
		if strat == StrategyMin {
			return out[i].Version.Compare(out[j].Version) < 0
		}
		return out[i].Version.Compare(out[j].Version) > 0
	})

	if len(preferred) == 0 {
		return out
	}
	prefix := make([]VersionCache, 0, len(preferred))
	for _, p := range preferred {
		entry := VersionCache{Version: p.Version, Sources: p.Sources}
		for i, c := range out {
			if c.Version.Equal(p.Version) {
				entry = c
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
		prefix = append(prefix, entry)
	}
	return append(prefix, out...)
}

// selectCandidates implements §4.3 in full: synthesizing an assumed version
// for a pinned requirement with no prior entry, fetching and filtering the
// full version list otherwise, the two empty-fallback prerelease retries,
// and the no-prior-entry / prior-entry / global-override branches. Returns
// the ordered candidate list and a tryRelaxed signal (§4.3's closing
// paragraph: "together with a try-relaxed = true signal").
func selectCandidates(ctx context.Context, st *step, wq *workQueue, pf *prefetcher, preferredLister PreferredVersionLister, name Name, current Requirement, sameName []Requirement, globalDirect, globalTransitive Strategy) ([]VersionCache, bool, error) {
	strat := chooseStrategy(current, sameName, globalDirect, globalTransitive)

	prior, hasPrior := st.filteredVersions[name.canon()]

	if hasPrior {
		if prior.GlobalOverride {
			return prior.Versions, false, nil
		}
		filtered := filterVersionsFor(prior.Versions, current, false)
		if len(filtered) > 0 {
			return filtered, false, nil
		}
		filtered = filterVersionsFor(prior.Versions, current, true)
		if len(filtered) > 0 && !st.relax {
			return filtered, true, nil
		}
		return filtered, false, nil
	}

	if v, ok := current.VersionReq.Pinned(); ok {
		listed, err := listAllVersions(ctx, pf, current.Sources, name)
		if err != nil {
			return nil, false, err
		}
		var exact []VersionCache
		for _, vc := range listed {
			if vc.Version.Equal(v) {
				exact = append(exact, vc)
			}
		}
		if len(exact) == 0 {
			srcs := synthesizedSources(current)
			exact = []VersionCache{{Version: v, Sources: srcs, Assumed: true}}
		}
		return orderCandidates(exact, strat, nil), false, nil
	}

	all, err := listAllVersions(ctx, pf, current.Sources, name)
	if err != nil {
		return nil, false, err
	}

	preferred, err := listPreferred(ctx, wq, preferredLister, strat, current.Sources, st.group, name)
	if err != nil {
		return nil, false, err
	}

	matches := func(allowPre bool) []VersionCache {
		var out []VersionCache
		for _, vc := range all {
			ok := true
			for _, r := range sameName {
				if !r.VersionReq.InRange(vc.Version, allowPre) {
					ok = false
					break
				}
			}
			if ok {
				out = append(out, vc)
			}
		}
		return out
	}

	kept := matches(false)
	if len(kept) == 0 && !current.isRoot() && current.TransitivePrerelease {
		kept = matches(true)
	}
	if len(kept) == 0 && allPrerelease(all) {
		policy := current.VersionReq.Prereleases
		if current.isRoot() && !policy.isAllReleases() {
			kept = matches(true)
		} else {
			kept = matches(true)
		}
	}

	return orderCandidates(kept, strat, preferred), false, nil
}

func allPrerelease(vcs []VersionCache) bool {
	if len(vcs) == 0 {
		return false
	}
	for _, vc := range vcs {
		if !vc.Version.Prerelease() {
			return false
		}
	}
	return true
}

// filterVersionsFor re-filters a previously-computed candidate list against
// one additional requirement, optionally admitting prereleases.
func filterVersionsFor(vcs []VersionCache, current Requirement, allowPre bool) []VersionCache {
	var out []VersionCache
	for _, vc := range vcs {
		if current.VersionReq.InRange(vc.Version, allowPre) {
			out = append(out, vc)
		}
	}
	return out
}

// synthesizedSources implements §4.3's "Sources for the synthesized entry"
// rule: parent's source prepended to the requirement's own sources
// (deduplicated), otherwise the requirement's own sources sorted local-first,
// nuget.org-last.
func synthesizedSources(r Requirement) []Source {
	if pp, ok := r.Parent.(PackageParent); ok {
		return dedupeSources(append([]Source{pp.Source}, r.Sources...))
	}
	return sortSources(r.Sources)
}

// listAllVersions goes through pf's shared requestMemo rather than issuing a
// fresh submission, so a list-versions call the prefetch pipeline already
// kicked off in the background for this (sources, name) is reused here
// instead of being requested from the oracle twice.
func listAllVersions(ctx context.Context, pf *prefetcher, sources []Source, name Name) ([]VersionCache, error) {
	h := pf.versionsHandle(ctx, sources, name, priorityBlockingWork)
	res, err := pf.wq.getAndReport(ctx, h)
	if err != nil {
		return nil, err
	}
	candidates, _ := res.([]VersionCandidate)
	out := make([]VersionCache, len(candidates))
	for i, c := range candidates {
		out[i] = VersionCache{Version: c.Version, Sources: c.Sources}
	}
	return out, nil
}

func listPreferred(ctx context.Context, wq *workQueue, lister PreferredVersionLister, strat Strategy, sources []Source, group Group, name Name) ([]PreferredVersion, error) {
	if lister == nil {
		return nil, nil
	}
	h := wq.submitNamed(priorityBlockingWork, name, sources, func(ctx context.Context) (interface{}, error) {
		return lister.PreferredVersions(ctx, strat, sources, group, name)
	})
	res, err := wq.getAndReport(ctx, h)
	if err != nil {
		return nil, err
	}
	out, _ := res.([]PreferredVersion)
	return out, nil
}
