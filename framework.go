package resolver

import "sort"

// Framework is a single target-framework moniker (e.g. "net472", "netstandard2.0").
// spec.md §1 treats the framework-restriction algebra as "assumed provided as
// a lattice"; there is no ecosystem library in the pack for this concept (it
// has no Go analogue — see DESIGN.md), so it is modeled directly as a set
// over this type, following the teacher's own Constraint interface shape
// (And/Or/Matches) generalized from versions to frameworks.
type Framework string

// Restriction is a set of frameworks a requirement or dependency edge applies
// under. The zero value is NOT "no restriction" — use NoRestriction().
type Restriction struct {
	all     bool
	members map[Framework]struct{}
}

// NoRestriction applies under every framework.
func NoRestriction() Restriction { return Restriction{all: true} }

// RestrictionFor builds a restriction scoped to exactly the given frameworks.
func RestrictionFor(fws ...Framework) Restriction {
	m := make(map[Framework]struct{}, len(fws))
	for _, f := range fws {
		m[f] = struct{}{}
	}
	return Restriction{members: m}
}

func (r Restriction) IsNoRestriction() bool { return r.all }

// RepresentedFrameworks returns the restriction's members in a stable sorted
// order; for NoRestriction it returns nil (the set is unenumerable/universal).
func (r Restriction) RepresentedFrameworks() []Framework {
	if r.all {
		return nil
	}
	out := make([]Framework, 0, len(r.members))
	for f := range r.members {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r Restriction) Has(f Framework) bool {
	if r.all {
		return true
	}
	_, ok := r.members[f]
	return ok
}

// And intersects two restrictions: the result applies only where both do.
func (r Restriction) And(o Restriction) Restriction {
	if r.all {
		return o
	}
	if o.all {
		return r
	}
	m := make(map[Framework]struct{})
	for f := range r.members {
		if _, ok := o.members[f]; ok {
			m[f] = struct{}{}
		}
	}
	return Restriction{members: m}
}

// Or unions two restrictions.
func (r Restriction) Or(o Restriction) Restriction {
	if r.all || o.all {
		return NoRestriction()
	}
	m := make(map[Framework]struct{}, len(r.members)+len(o.members))
	for f := range r.members {
		m[f] = struct{}{}
	}
	for f := range o.members {
		m[f] = struct{}{}
	}
	return Restriction{members: m}
}

// Equal reports exact equality of the two member sets; per Open Question 3,
// near-equal restrictions are never collapsed as equal — only exact matches.
func (r Restriction) Equal(o Restriction) bool {
	if r.all != o.all {
		return false
	}
	if r.all {
		return true
	}
	if len(r.members) != len(o.members) {
		return false
	}
	for f := range r.members {
		if _, ok := o.members[f]; !ok {
			return false
		}
	}
	return true
}

func (r Restriction) IsEmpty() bool {
	return !r.all && len(r.members) == 0
}

// RestrictionKind distinguishes whether a restriction was explicitly declared
// or should be auto-detected from a package's own supported-framework list.
type RestrictionKind int

const (
	RestrictionAutoDetect RestrictionKind = iota
	RestrictionExplicit
)

// RestrictionSetting is the two-state variant requirement restrictions carry
// before being resolved against a concrete package's declared frameworks.
type RestrictionSetting struct {
	Kind  RestrictionKind
	Value Restriction
}

func AutoDetectRestriction() RestrictionSetting {
	return RestrictionSetting{Kind: RestrictionAutoDetect}
}

func ExplicitRestriction(r Restriction) RestrictionSetting {
	return RestrictionSetting{Kind: RestrictionExplicit, Value: r}
}

// Resolve turns an auto-detect setting into a concrete Restriction by
// taking the frameworks a fetched package detail declares it supports
// (declared, returned as is); an explicit setting passes through untouched.
func (rs RestrictionSetting) Resolve(declared Restriction) Restriction {
	if rs.Kind == RestrictionExplicit {
		return rs.Value
	}
	return declared
}
