package resolver

// filterByRestrictions keeps a dependency edge iff the effective restriction
// r is NoRestriction, or its represented frameworks intersect the edge's own
// restriction. Grounded on the teacher's satisfy.go checkDepsConstraintsAllowable,
// generalized from a single allowed-project-constraint check to framework-set
// intersection; deliberately skips materializing And(r, dr) since only
// non-emptiness of the intersection is needed (§4.1's stated rationale).
func filterByRestrictions(r Restriction, deps []DependencyEdge) []DependencyEdge {
	if r.IsNoRestriction() {
		return deps
	}
	out := make([]DependencyEdge, 0, len(deps))
	for _, d := range deps {
		if restrictionsIntersect(r, effectiveRestriction(d.Restrictions)) {
			out = append(out, d)
		}
	}
	return out
}

func effectiveRestriction(rs RestrictionSetting) Restriction {
	if rs.Kind == RestrictionExplicit {
		return rs.Value
	}
	return NoRestriction()
}

func restrictionsIntersect(a, b Restriction) bool {
	if a.IsNoRestriction() || b.IsNoRestriction() {
		return true
	}
	for _, f := range a.RepresentedFrameworks() {
		if b.Has(f) {
			return true
		}
	}
	return false
}

// findFirstIncompatibility returns the first dependency edge naming
// resolved's package whose version requirement rejects resolved's chosen
// version, along with true; ok is false when every such edge is satisfied.
// allow-transitive-prereleases is computed per §4.1: true iff some
// requirement for that name in step.closed ∪ step.open carries the
// transitive-prerelease flag. Grounded on the teacher's satisfy.go
// checkDepsDisallowsSelected.
func findFirstIncompatibility(st *step, deps []DependencyEdge, resolved Resolved) (DependencyEdge, bool) {
	allow := allowsTransitivePrerelease(st, resolved.Name)
	for _, d := range deps {
		if !d.Name.Eq(resolved.Name) {
			continue
		}
		if !d.VersionReq.InRange(resolved.Version, allow) {
			return d, true
		}
	}
	return DependencyEdge{}, false
}

// checkAgainstExisting runs findFirstIncompatibility against every package
// already present in step.currentResolution, for a freshly explored
// package's own dependency edges. This is the actual use of
// find-first-incompatibility described in §4.1: a newly introduced
// dependency edge must not disallow a package that is already selected on
// this path. Grounded on the teacher's satisfy.go checkDepsDisallowsSelected,
// which performs the equivalent existing-selection scan.
func checkAgainstExisting(st *step, deps []DependencyEdge) (DependencyEdge, Resolved, bool) {
	for _, existing := range st.currentResolution {
		if bad, ok := findFirstIncompatibility(st, deps, existing); ok {
			return bad, existing, true
		}
	}
	return DependencyEdge{}, Resolved{}, false
}

// allowsTransitivePrerelease reports whether any requirement for name in the
// step's closed or open sets carries TransitivePrerelease.
func allowsTransitivePrerelease(st *step, name Name) bool {
	for _, r := range st.closedRequirements {
		if r.Name.Eq(name) && r.TransitivePrerelease {
			return true
		}
	}
	for _, r := range st.openRequirements {
		if r.Name.Eq(name) && r.TransitivePrerelease {
			return true
		}
	}
	return false
}
