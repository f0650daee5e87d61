package resolver

import "github.com/armon/go-radix"

// calcOpenRequirements implements §4.2: given the just-explored package, its
// accepted version-cache entry, the requirement that led to its exploration,
// and the top-level global framework restriction, compute the next
// open-requirement frontier. Grounded on the teacher's solver.go
// getImportsAndConstraintsOf/intersectConstraintsWithImports (building a new
// set of constraints from a project's manifest and the existing selection)
// and selection.go's pushDep/popDep open/closed bookkeeping, generalized
// from Go import-path reachability to framework-restriction propagation.
//
// armon/go-radix indexes the closed and open sets by canonical name so
// subsumption checks (steps 3-4) don't linearly rescan the whole frontier
// for every compressed dependency, mirroring the teacher's own radix-tree
// use in intersectConstraintsWithImports.
func calcOpenRequirements(st *step, explored Resolved, vcache VersionCache, leadDep Requirement, globalRestrictions Restriction) ([]Requirement, error) {
	compressed := compressDuplicateDeps(explored.Dependencies)

	closedByName := indexRequirements(st.closedRequirements)
	openByName := indexRequirements(st.openRequirements)

	// A Resolved whose Settings were never filled in (zero-value Restriction)
	// carries no restriction.
	exploredRestriction := explored.Settings.Restrictions
	if !exploredRestriction.IsNoRestriction() && exploredRestriction.members == nil {
		exploredRestriction = NoRestriction()
	}

	var fresh []Requirement
	for _, d := range compressed {
		restriction := effectiveRestriction(d.Restrictions).And(exploredRestriction).And(globalRestrictions)
		if restriction.IsEmpty() {
			restriction = exploredRestriction
		}
		if fe, ok := st.filteredVersions[d.Name.canon()]; ok && fe != nil && fe.GlobalOverride {
			for _, c := range closedByName.lookup(d.Name) {
				if c.VersionReq.IsGlobalOverride() {
					restriction = effectiveRestriction(c.Restrictions)
					break
				}
			}
		}

		newReq := Requirement{
			Name:                 d.Name,
			VersionReq:           d.VersionReq,
			Sources:              leadDep.Sources,
			Restrictions:         ExplicitRestriction(restriction),
			Parent:               PackageParent{Name: explored.Name, Version: vcache.Version, Source: explored.Source},
			Graph:                append(append([]Requirement{}, leadDep.Graph...), leadDep),
			Depth:                leadDep.Depth + 1,
			TransitivePrerelease: leadDep.TransitivePrerelease && vcache.Version.Prerelease(),
		}

		if subsumedByClosed(newReq, closedByName) {
			continue
		}
		if subsumedByOpen(newReq, openByName) {
			continue
		}
		fresh = append(fresh, newReq)
	}

	residual := removeRequirement(st.openRequirements, leadDep)
	next := append(fresh, residual...)

	if sameRequirementSet(next, st.openRequirements) {
		return nil, &InvariantViolation{Detail: "calcOpenRequirements: next open-requirement frontier equals prior frontier"}
	}
	return next, nil
}

// compressDuplicateDeps implements §4.2 step 1: entries sharing a name and
// prerelease policy are merged (restrictions Or'd, the wider version range
// kept); otherwise the later occurrence wins.
func compressDuplicateDeps(deps []DependencyEdge) []DependencyEdge {
	byName := make(map[string]int)
	var out []DependencyEdge
	for _, d := range deps {
		key := d.Name.canon()
		if idx, ok := byName[key]; ok {
			existing := out[idx]
			ep, dp := existing.VersionReq.Prereleases, d.VersionReq.Prereleases
			samePolicy := ep.Kind == dp.Kind && len(ep.Labels) == len(dp.Labels)
			for i := 0; samePolicy && i < len(ep.Labels); i++ {
				samePolicy = ep.Labels[i] == dp.Labels[i]
			}
			if samePolicy {
				merged := existing
				merged.Restrictions = ExplicitRestriction(effectiveRestriction(existing.Restrictions).Or(effectiveRestriction(d.Restrictions)))
				if d.VersionReq.Range.IsSupersetOf(existing.VersionReq.Range) {
					merged.VersionReq = d.VersionReq
				}
				out[idx] = merged
				continue
			}
			out[idx] = d
			continue
		}
		byName[key] = len(out)
		out = append(out, d)
	}
	return out
}

// requirementIndex groups requirements by canonical name for subsumption
// lookups, backed by a radix tree over the canonical name keyspace (the
// same structure the teacher's solver.go uses in
// intersectConstraintsWithImports) instead of a plain map, so a lookup can
// share prefix nodes across closely-related package names.
type requirementIndex struct {
	tree *radix.Tree
}

// indexRequirements groups requirements by canonical name for lookup during
// subsumption checks.
func indexRequirements(reqs []Requirement) *requirementIndex {
	t := radix.New()
	for _, r := range reqs {
		k := r.Name.canon()
		var bucket []Requirement
		if v, ok := t.Get(k); ok {
			bucket = v.([]Requirement)
		}
		t.Insert(k, append(bucket, r))
	}
	return &requirementIndex{tree: t}
}

func (idx *requirementIndex) lookup(name Name) []Requirement {
	v, ok := idx.tree.Get(name.canon())
	if !ok {
		return nil
	}
	return v.([]Requirement)
}

// subsumedByClosed implements §4.2 step 3: drop a new requirement already
// subsumed by a closed entry with identical framework-restrictions — where
// subsumption holds if the ranges are equal, the new range is included in
// the closed range, or the closed range is a global override.
func subsumedByClosed(newReq Requirement, closedByName *requirementIndex) bool {
	for _, c := range closedByName.lookup(newReq.Name) {
		if !restrictionSettingsEqual(c.Restrictions, newReq.Restrictions) {
			continue
		}
		if c.VersionReq.IsGlobalOverride() {
			return true
		}
		if c.VersionReq.Range.Equal(newReq.VersionReq.Range) {
			return true
		}
		if c.VersionReq.Range.IsSupersetOf(newReq.VersionReq.Range) {
			return true
		}
	}
	return false
}

// subsumedByOpen implements §4.2 step 4: drop a new requirement already
// present in open with equal name and framework-restrictions, when either the
// ranges are equal or the existing one is a global override.
func subsumedByOpen(newReq Requirement, openByName *requirementIndex) bool {
	for _, o := range openByName.lookup(newReq.Name) {
		if !restrictionSettingsEqual(o.Restrictions, newReq.Restrictions) {
			continue
		}
		if o.VersionReq.IsGlobalOverride() {
			return true
		}
		if o.VersionReq.Range.Equal(newReq.VersionReq.Range) {
			return true
		}
	}
	return false
}

// restrictionSettingsEqual compares two RestrictionSettings by their
// resolved restriction value, per Open Question decision 3 (conservative:
// exact match only, no fuzzy collapsing).
func restrictionSettingsEqual(a, b RestrictionSetting) bool {
	return effectiveRestriction(a).Equal(effectiveRestriction(b))
}

// removeRequirement returns open minus the single just-satisfied
// requirement (§4.2 step 5: "union with the residual open").
func removeRequirement(open []Requirement, satisfied Requirement) []Requirement {
	out := make([]Requirement, 0, len(open))
	for _, r := range open {
		if r.Name.Eq(satisfied.Name) && requirementIdentical(r, satisfied) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func requirementIdentical(a, b Requirement) bool {
	return a.Name.Eq(b.Name) &&
		a.VersionReq.Range.Equal(b.VersionReq.Range) &&
		a.Depth == b.Depth
}

// sameRequirementSet backs the endless-loop guard: if the newly computed
// open set equals the prior one exactly, the search has stalled.
func sameRequirementSet(a, b []Requirement) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ra := range a {
		found := false
		for i, rb := range b {
			if used[i] {
				continue
			}
			if requirementIdentical(ra, rb) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
