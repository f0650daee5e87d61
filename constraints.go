package resolver

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// bound is a single half-open-or-closed version interval: [min, max] with
// per-side inclusivity and per-side "unbounded" flags. VersionRange is a set
// of bounds OR'd together. This is the resolver's own interval algebra,
// built on top of Masterminds/semver/v3's Version parsing and comparison
// (semver.NewVersion, Version.Compare) rather than that library's
// Constraints type, because the component design (§4.1) needs Intersect and
// IsSupersetOf operations for requirement-merge subsumption (§4.2 step 3/4)
// that a plain "does this version match" predicate can't answer.
type bound struct {
	unboundedMin bool
	min          *semver.Version
	minIncl      bool
	unboundedMax bool
	max          *semver.Version
	maxIncl      bool
}

func anyBound() bound { return bound{unboundedMin: true, unboundedMax: true} }

func (b bound) contains(v *semver.Version) bool {
	if !b.unboundedMin {
		c := v.Compare(b.min)
		if c < 0 || (c == 0 && !b.minIncl) {
			return false
		}
	}
	if !b.unboundedMax {
		c := v.Compare(b.max)
		if c > 0 || (c == 0 && !b.maxIncl) {
			return false
		}
	}
	return true
}

func (b bound) empty() bool {
	if b.unboundedMin || b.unboundedMax {
		return false
	}
	c := b.min.Compare(b.max)
	if c > 0 {
		return true
	}
	if c == 0 && !(b.minIncl && b.maxIncl) {
		return true
	}
	return false
}

// intersect computes the AND of two bounds, used to combine space-separated
// constraint segments within one OR group.
func (b bound) intersect(o bound) bound {
	out := bound{minIncl: true, maxIncl: true}

	switch {
	case b.unboundedMin && o.unboundedMin:
		out.unboundedMin = true
	case b.unboundedMin:
		out.min, out.minIncl = o.min, o.minIncl
	case o.unboundedMin:
		out.min, out.minIncl = b.min, b.minIncl
	default:
		c := b.min.Compare(o.min)
		switch {
		case c > 0:
			out.min, out.minIncl = b.min, b.minIncl
		case c < 0:
			out.min, out.minIncl = o.min, o.minIncl
		default:
			out.min, out.minIncl = b.min, b.minIncl && o.minIncl
		}
	}

	switch {
	case b.unboundedMax && o.unboundedMax:
		out.unboundedMax = true
	case b.unboundedMax:
		out.max, out.maxIncl = o.max, o.maxIncl
	case o.unboundedMax:
		out.max, out.maxIncl = b.max, b.maxIncl
	default:
		c := b.max.Compare(o.max)
		switch {
		case c < 0:
			out.max, out.maxIncl = b.max, b.maxIncl
		case c > 0:
			out.max, out.maxIncl = o.max, o.maxIncl
		default:
			out.max, out.maxIncl = b.max, b.maxIncl && o.maxIncl
		}
	}
	return out
}

// isSupersetOf reports whether every version admitted by o is also admitted
// by b: b's lower bound is <= o's (with compatible inclusivity) and b's
// upper bound is >= o's.
func (b bound) isSupersetOf(o bound) bool {
	minOK := b.unboundedMin || (!o.unboundedMin && func() bool {
		c := b.min.Compare(o.min)
		return c < 0 || (c == 0 && (b.minIncl || !o.minIncl))
	}())
	maxOK := b.unboundedMax || (!o.unboundedMax && func() bool {
		c := b.max.Compare(o.max)
		return c > 0 || (c == 0 && (b.maxIncl || !o.maxIncl))
	}())
	return minOK && maxOK
}

func (b bound) equal(o bound) bool {
	return b.isSupersetOf(o) && o.isSupersetOf(b)
}

// VersionRange is a version-range predicate: an OR of interval bounds.
type VersionRange struct {
	any    bool
	bounds []bound
	raw    string
}

// AnyVersion matches every version.
func AnyVersion() VersionRange { return VersionRange{any: true, raw: "*"} }

// ParseVersionRange parses a constraint expression. Supported grammar,
// modeled on the common conventions Masterminds/semver/v3's own Constraints
// type accepts (comma-free OR via "||", whitespace AND, operators =, >, >=,
// <, <=, ^, ~, and hyphen ranges "X - Y"):
func ParseVersionRange(s string) (VersionRange, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return AnyVersion(), nil
	}

	var bounds []bound
	for _, group := range strings.Split(s, "||") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		b, err := parseAndGroup(group)
		if err != nil {
			return VersionRange{}, err
		}
		if !b.empty() {
			bounds = append(bounds, b)
		}
	}
	if len(bounds) == 0 {
		return VersionRange{}, &rangeParseError{raw: s}
	}
	return VersionRange{bounds: bounds, raw: s}, nil
}

type rangeParseError struct{ raw string }

func (e *rangeParseError) Error() string { return "unsatisfiable or invalid version range: " + e.raw }

func parseAndGroup(group string) (bound, error) {
	if strings.Contains(group, " - ") {
		parts := strings.SplitN(group, " - ", 2)
		lo, err := semver.NewVersion(strings.TrimSpace(parts[0]))
		if err != nil {
			return bound{}, err
		}
		hi, err := semver.NewVersion(strings.TrimSpace(parts[1]))
		if err != nil {
			return bound{}, err
		}
		return bound{min: lo, minIncl: true, max: hi, maxIncl: true}, nil
	}

	acc := anyBound()
	for _, tok := range strings.Fields(group) {
		b, err := parseSegment(tok)
		if err != nil {
			return bound{}, err
		}
		acc = acc.intersect(b)
	}
	return acc, nil
}

func parseSegment(tok string) (bound, error) {
	switch {
	case strings.HasPrefix(tok, ">="):
		v, err := semver.NewVersion(tok[2:])
		return bound{min: v, minIncl: true, unboundedMax: true}, err
	case strings.HasPrefix(tok, "<="):
		v, err := semver.NewVersion(tok[2:])
		return bound{unboundedMin: true, max: v, maxIncl: true}, err
	case strings.HasPrefix(tok, ">"):
		v, err := semver.NewVersion(tok[1:])
		return bound{min: v, minIncl: false, unboundedMax: true}, err
	case strings.HasPrefix(tok, "<"):
		v, err := semver.NewVersion(tok[1:])
		return bound{unboundedMin: true, max: v, maxIncl: false}, err
	case strings.HasPrefix(tok, "="):
		v, err := semver.NewVersion(tok[1:])
		return bound{min: v, minIncl: true, max: v, maxIncl: true}, err
	case strings.HasPrefix(tok, "^"):
		v, err := semver.NewVersion(tok[1:])
		if err != nil {
			return bound{}, err
		}
		return bound{min: v, minIncl: true, max: caretCeiling(v), maxIncl: false}, nil
	case strings.HasPrefix(tok, "~"):
		v, err := semver.NewVersion(tok[1:])
		if err != nil {
			return bound{}, err
		}
		return bound{min: v, minIncl: true, max: tildeCeiling(v), maxIncl: false}, nil
	default:
		v, err := semver.NewVersion(tok)
		return bound{min: v, minIncl: true, max: v, maxIncl: true}, err
	}
}

// caretCeiling implements npm-style caret range semantics: allow changes
// that do not modify the left-most non-zero component.
func caretCeiling(v *semver.Version) *semver.Version {
	switch {
	case v.Major() > 0:
		return semver.New(v.Major()+1, 0, 0, "", "")
	case v.Minor() > 0:
		return semver.New(0, v.Minor()+1, 0, "", "")
	default:
		return semver.New(0, 0, v.Patch()+1, "", "")
	}
}

// tildeCeiling allows patch-level changes only: the ceiling is always the
// next minor version.
func tildeCeiling(v *semver.Version) *semver.Version {
	return semver.New(v.Major(), v.Minor()+1, 0, "", "")
}

func (r VersionRange) Matches(v Version) bool {
	if !v.valid() {
		return false
	}
	if r.any {
		return true
	}
	for _, b := range r.bounds {
		if b.contains(v.sv) {
			return true
		}
	}
	return false
}

// Intersect returns the conjunction of two ranges. Used by requirement-merge
// subsumption checks and by the dependency-set filter's "superset" logic.
func (r VersionRange) Intersect(o VersionRange) VersionRange {
	if r.any {
		return o
	}
	if o.any {
		return r
	}
	var out []bound
	for _, a := range r.bounds {
		for _, b := range o.bounds {
			c := a.intersect(b)
			if !c.empty() {
				out = append(out, c)
			}
		}
	}
	return VersionRange{bounds: out, raw: "(" + r.raw + ") ∩ (" + o.raw + ")"}
}

// IsSupersetOf reports whether every version admitted by o is admitted by r.
// Used by calcOpenRequirements (§4.2 steps 3-4) to decide subsumption.
func (r VersionRange) IsSupersetOf(o VersionRange) bool {
	if r.any {
		return true
	}
	if o.any {
		return false
	}
	for _, ob := range o.bounds {
		covered := false
		for _, rb := range r.bounds {
			if rb.isSupersetOf(ob) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func (r VersionRange) Equal(o VersionRange) bool {
	return r.IsSupersetOf(o) && o.IsSupersetOf(r)
}

func (r VersionRange) String() string {
	if r.raw != "" {
		return r.raw
	}
	return "*"
}

// VersionRequirement pairs a range with a prerelease admission policy,
// exposing the single in-range predicate used throughout the solver.
type VersionRequirement struct {
	Range       VersionRange
	Prereleases PrereleaseStatus
	overrideAll bool
	pinned      Version
}

// ExactVersion builds a requirement pinned to a single version (spec.md's
// "Specific v").
func ExactVersion(v Version) VersionRequirement {
	return VersionRequirement{
		Range:       VersionRange{bounds: []bound{{min: v.sv, minIncl: true, max: v.sv, maxIncl: true}}, raw: "=" + v.String()},
		Prereleases: NoPrerelease(),
		pinned:      v,
	}
}

// OverrideAllVersion builds a global-override requirement (spec.md's
// "OverrideAll v") that silences every other constraint on the same name.
func OverrideAllVersion(v Version) VersionRequirement {
	vr := ExactVersion(v)
	vr.overrideAll = true
	return vr
}

func (vr VersionRequirement) IsGlobalOverride() bool { return vr.overrideAll }

// IsSpecific reports whether this requirement pins to one exact version
// (either a plain pin or an override-all pin).
func (vr VersionRequirement) IsSpecific() bool {
	return vr.pinned.valid()
}

func (vr VersionRequirement) Pinned() (Version, bool) { return vr.pinned, vr.pinned.valid() }

// InRange is the requirement's authoritative match predicate: §3's
// "in-range(version, allow-transitive-prerelease) → bool".
func (vr VersionRequirement) InRange(v Version, allowTransitivePrerelease bool) bool {
	if v.Prerelease() && !allowTransitivePrerelease && !vr.Prereleases.Allows(v) {
		return false
	}
	return vr.Range.Matches(v)
}

func (vr VersionRequirement) String() string { return vr.Range.String() }
