package resolver

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is this resolver's facade over the semver primitives spec.md §1
// assumes are externally provided. The rest of the package never imports
// github.com/Masterminds/semver/v3 directly; everything funnels through
// here and through VersionRange in constraints.go, mirroring the teacher's
// constraints.go (semVersion wrapping *semver.Version behind gps's own
// Version interface).
type Version struct {
	sv  *semver.Version
	raw string
}

// ParseVersion parses a concrete version string. Unlike a VersionRange, a
// Version always denotes exactly one point.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("parse version %q: %w", s, err)
	}
	return Version{sv: sv, raw: s}, nil
}

// MustVersion is a test/fixture convenience; it panics on a malformed
// version, which is appropriate only for literal constants.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) valid() bool { return v.sv != nil }

func (v Version) String() string {
	if !v.valid() {
		return v.raw
	}
	return v.sv.Original()
}

// Prerelease reports whether this version carries a prerelease tag.
func (v Version) Prerelease() bool {
	return v.valid() && v.sv.Prerelease() != ""
}

// Compare returns -1, 0, or 1, following the usual semver total order.
func (v Version) Compare(o Version) int {
	if !v.valid() || !o.valid() {
		return 0
	}
	return v.sv.Compare(o.sv)
}

func (v Version) Equal(o Version) bool {
	return v.valid() && o.valid() && v.sv.Equal(o.sv)
}

func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// sortVersions orders a slice in place according to the resolver strategy:
// StrategyMax descending, StrategyMin ascending.
func sortVersions(vs []Version, strat Strategy) {
	asc := strat == StrategyMin
	for i := 1; i < len(vs); i++ {
		j := i
		for j > 0 {
			swap := vs[j-1].Compare(vs[j]) > 0
			if !asc {
				swap = vs[j-1].Compare(vs[j]) < 0
			}
			if !swap {
				break
			}
			vs[j-1], vs[j] = vs[j], vs[j-1]
			j--
		}
	}
}

// PrereleaseKind enumerates the three prerelease admission policies from
// spec.md §3.
type PrereleaseKind int

const (
	PrereleaseNo PrereleaseKind = iota
	PrereleaseAll
	PrereleaseConcrete
)

// PrereleaseStatus is a requirement's prerelease-admission policy.
type PrereleaseStatus struct {
	Kind   PrereleaseKind
	Labels []string
}

func NoPrerelease() PrereleaseStatus       { return PrereleaseStatus{Kind: PrereleaseNo} }
func AllPrerelease() PrereleaseStatus      { return PrereleaseStatus{Kind: PrereleaseAll} }
func ConcretePrerelease(labels ...string) PrereleaseStatus {
	return PrereleaseStatus{Kind: PrereleaseConcrete, Labels: labels}
}

// Allows reports whether this policy admits v's prerelease tag (if any). A
// non-prerelease version is always admitted regardless of policy.
func (p PrereleaseStatus) Allows(v Version) bool {
	if !v.Prerelease() {
		return true
	}
	switch p.Kind {
	case PrereleaseAll:
		return true
	case PrereleaseConcrete:
		tag := v.sv.Prerelease()
		for _, l := range p.Labels {
			if tag == l {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (p PrereleaseStatus) isAllReleases() bool { return p.Kind == PrereleaseNo }
