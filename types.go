package resolver

import "strings"

// Name is a package identifier with case-insensitive equality, mirroring the
// teacher's ProjectRoot/ProjectIdentifier split but collapsed to a single
// string since this resolver has no notion of sub-packages within a project.
type Name string

// Eq reports whether two names refer to the same package, ignoring case.
func (n Name) Eq(o Name) bool {
	return strings.EqualFold(string(n), string(o))
}

// Less gives a deterministic total order over names, used wherever the spec
// calls for breaking ties by "parent name then version" instead of relying on
// map iteration order.
func (n Name) Less(o Name) bool {
	return strings.ToLower(string(n)) < strings.ToLower(string(o))
}

func (n Name) String() string { return string(n) }

// canon returns the lower-cased form used as a map key so that requirements
// and resolutions for "Foo" and "foo" land in the same bucket.
func (n Name) canon() string { return strings.ToLower(string(n)) }

// Group distinguishes independent dependency sets resolved against the same
// root (e.g. "main" vs "test"), per the Resolve entry point's updateMode.
type Group string

// Source is a package origin: a remote feed URL or a local path feed.
type Source struct {
	URL         string
	IsLocalFeed bool
}

func (s Source) Eq(o Source) bool {
	return s.URL == o.URL && s.IsLocalFeed == o.IsLocalFeed
}

// sortSources orders local feeds first and nuget.org last, per §4.3's
// "otherwise the requirement's own sources sorted with local feeds first and
// nuget.org last" rule for synthesizing an assumed-version cache entry.
func sortSources(srcs []Source) []Source {
	out := make([]Source, len(srcs))
	copy(out, srcs)
	rank := func(s Source) int {
		switch {
		case s.IsLocalFeed:
			return 0
		case strings.Contains(s.URL, "nuget.org"):
			return 2
		default:
			return 1
		}
	}
	// simple stable insertion sort; the slices here are always small
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && rank(out[j-1]) > rank(out[j]) {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

func dedupeSources(srcs []Source) []Source {
	seen := make(map[string]struct{}, len(srcs))
	out := make([]Source, 0, len(srcs))
	for _, s := range srcs {
		k := s.URL
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Parent identifies what introduced a Requirement: the root file itself, or
// another resolved package.
type Parent interface {
	isParent()
	String() string
}

// RootParent marks a requirement that came straight from the root file.
type RootParent struct{}

func (RootParent) isParent()     {}
func (RootParent) String() string { return "(root)" }

// PackageParent marks a requirement introduced transitively by a resolved
// package's own dependency list.
type PackageParent struct {
	Name    Name
	Version Version
	Source  Source
}

func (PackageParent) isParent() {}
func (p PackageParent) String() string {
	return p.Name.String() + "@" + p.Version.String()
}

// isRoot reports whether a Parent is the root file.
func isRoot(p Parent) bool {
	_, ok := p.(RootParent)
	return ok
}

// Strategy is the resolver's version-order policy for a requirement in the
// absence of a pin.
type Strategy int

const (
	// StrategyUnset means "no override supplied"; it is the monoid identity
	// for the strategy-combine fold in chooseStrategy.
	StrategyUnset Strategy = iota
	StrategyMin
	StrategyMax
)

// combine folds two strategy overrides left-biased: an unset right operand
// never overrides a set left operand, mirroring the teacher's
// ProjectConstraints.override "any non-zero value wins" idiom.
func (s Strategy) combine(o Strategy) Strategy {
	if s != StrategyUnset {
		return s
	}
	return o
}

func (s Strategy) orDefault(def Strategy) Strategy {
	if s == StrategyUnset {
		return def
	}
	return s
}

// UpdateMode selects how the resolver treats already-resolved state when
// re-solving, per spec.md §6.
type UpdateMode struct {
	Kind   UpdateKind
	Group  Group
	Filter PackageFilter
}

type UpdateKind int

const (
	UpdateInstall UpdateKind = iota
	UpdateAll
	UpdateGroupKind
	UpdateFilteredKind
)

// PackageFilter decides whether a package name participates in
// UpdateFiltered's prioritized ordering.
type PackageFilter func(Name) bool

func installMode() UpdateMode { return UpdateMode{Kind: UpdateInstall} }
