package resolver

// DependencyEdge is one entry in a package version's declared dependency
// list, as returned by a DetailsFetcher. Mirrors the teacher's
// `dependency` (types.go: `Depender atom; Dep completeDep`) collapsed to the
// single directed edge it actually represents.
type DependencyEdge struct {
	Name         Name
	VersionReq   VersionRequirement
	Restrictions RestrictionSetting
}

// Requirement is one entry in the resolver's working set: a name, the
// version constraint currently in force for it, the sources it may be
// fetched from, its framework restriction, who introduced it, and the chain
// of requirements that led here (used for conflict reporting). Grounded on
// the teacher's `completeDep`/`bimodalIdentifier` pairing of identity with
// constraint, generalized with the strategy-override and transitive-
// prerelease fields spec.md's requirement-merge needs.
type Requirement struct {
	Name                       Name
	VersionReq                 VersionRequirement
	Sources                    []Source
	Restrictions               RestrictionSetting
	Parent                     Parent
	Graph                      []Requirement
	Depth                      int
	TransitivePrerelease       bool
	StrategyOverride           Strategy
	TransitiveStrategyOverride Strategy
	CLITool                    bool
}

func (r Requirement) isRoot() bool { return isRoot(r.Parent) }

// chain returns the parent-chain path used in conflict reports, root first.
func (r Requirement) chain() []Parent {
	out := make([]Parent, 0, len(r.Graph)+1)
	for _, g := range r.Graph {
		out = append(out, g.Parent)
	}
	out = append(out, r.Parent)
	return out
}

// Details is the full fetched description of one concrete package version,
// as returned by a DetailsFetcher. Grounded on the teacher's
// `bimodalIdentifier`/`Manifest` split between identity and declared
// dependencies, minus the manifest-file-format concerns that are out of
// scope here.
type Details struct {
	Name         Name
	Version      Version
	Source       Source
	DownloadLink string
	LicenseURL   string
	Unlisted     bool
	Dependencies []DependencyEdge
}

// Resolved is one package as it appears in a finished resolution: the
// version picked, the dependency edges that were active for it (already
// filtered by restriction), and whether it is a direct root requirement, a
// transitive library dependency, or a CLI-tool-only dependency.
type Resolved struct {
	Name                Name
	Version             Version
	Dependencies        []DependencyEdge
	Unlisted            bool
	IsRuntimeDependency bool
	IsCLITool           bool
	Settings            InstallSettings
	Source              Source
}

// InstallSettings records the restriction a resolved package was accepted
// under, so a later consumer (e.g. a lockfile writer outside this module's
// scope) knows which frameworks it actually applies to.
type InstallSettings struct {
	Restrictions Restriction
}
