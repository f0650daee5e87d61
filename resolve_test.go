package resolver

import (
	"context"
	"strings"
	"testing"
	"time"
)

// fakeCatalog is an in-memory VersionLister + DetailsFetcher backing the
// end-to-end scenarios below. Keys are lower-cased package names.
type fakeCatalog struct {
	versions map[string][]string
	deps     map[string]map[string][]DependencyEdge
	unlisted map[string]map[string]bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		versions: map[string][]string{},
		deps:     map[string]map[string][]DependencyEdge{},
		unlisted: map[string]map[string]bool{},
	}
}

func (c *fakeCatalog) addVersion(name, version string, deps ...DependencyEdge) {
	key := strings.ToLower(name)
	c.versions[key] = append(c.versions[key], version)
	if c.deps[key] == nil {
		c.deps[key] = map[string][]DependencyEdge{}
	}
	c.deps[key][version] = deps
}

func (c *fakeCatalog) ListVersions(ctx context.Context, sources []Source, group Group, name Name) ([]VersionCandidate, error) {
	key := strings.ToLower(name.String())
	var out []VersionCandidate
	for _, v := range c.versions[key] {
		out = append(out, VersionCandidate{Version: MustVersion(v)})
	}
	return out, nil
}

func (c *fakeCatalog) FetchDetails(ctx context.Context, sources []Source, group Group, name Name, v Version) (Details, error) {
	key := strings.ToLower(name.String())
	deps := c.deps[key][v.String()]
	unlisted := c.unlisted[key] != nil && c.unlisted[key][v.String()]
	return Details{Name: name, Version: v, Dependencies: deps, Unlisted: unlisted}, nil
}

func rootReq(name string, expr string) Requirement {
	return Requirement{
		Name:       Name(name),
		VersionReq: reqRange(expr),
		Parent:     RootParent{},
	}
}

func runResolve(t *testing.T, catalog *fakeCatalog, roots []Requirement) Resolution {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return Resolve(ctx, catalog, nil, catalog, Group("main"), StrategyUnset, StrategyUnset, NoRestriction(), roots, installMode())
}

func TestResolveTrivialPicksMaxVersion(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addVersion("A", "1.0.0")
	catalog.addVersion("A", "1.1.0")

	res := runResolve(t, catalog, []Requirement{rootReq("A", ">=1.0.0")})
	if !res.IsOk() {
		t.Fatalf("expected resolution to succeed, errors: %v", res.Errors())
	}
	got, ok := res.Mapping()["a"]
	if !ok {
		t.Fatalf("expected package a to be resolved, got %+v", res.Mapping())
	}
	if !got.Version.Equal(MustVersion("1.1.0")) {
		t.Fatalf("expected the max available version 1.1.0, got %s", got.Version)
	}
}

func TestResolveTransitivePinOverridesRange(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addVersion("A", "1.0.0", DependencyEdge{Name: "B", VersionReq: ExactVersion(MustVersion("2.0.0"))})
	catalog.addVersion("B", "1.0.0")
	catalog.addVersion("B", "2.0.0")
	catalog.addVersion("B", "2.1.0")

	res := runResolve(t, catalog, []Requirement{rootReq("A", ">=1.0.0")})
	if !res.IsOk() {
		t.Fatalf("expected resolution to succeed, errors: %v", res.Errors())
	}
	got, ok := res.Mapping()["b"]
	if !ok {
		t.Fatalf("expected package b to be resolved, got %+v", res.Mapping())
	}
	if !got.Version.Equal(MustVersion("2.0.0")) {
		t.Fatalf("expected the pinned version 2.0.0, got %s", got.Version)
	}
}

func TestResolveConflictWhenRangesDisjoint(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addVersion("A", "1.0.0", DependencyEdge{Name: "C", VersionReq: reqRange(">=2.0.0")})
	catalog.addVersion("B", "1.0.0", DependencyEdge{Name: "C", VersionReq: reqRange("<2.0.0")})
	catalog.addVersion("C", "1.0.0")
	catalog.addVersion("C", "2.0.0")

	res := runResolve(t, catalog, []Requirement{rootReq("A", ">=1.0.0"), rootReq("B", ">=1.0.0")})
	if res.IsOk() {
		t.Fatalf("expected a conflict on C's disjoint ranges, but resolution succeeded: %+v", res.Mapping())
	}
	if res.Conflict() == nil {
		t.Fatal("expected a ConflictError to be reported")
	}
}

func TestResolveGlobalOverrideWinsOverTransitiveRange(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addVersion("A", "1.0.0", DependencyEdge{Name: "B", VersionReq: reqRange(">=2.0.0")})
	catalog.addVersion("B", "1.0.0")
	catalog.addVersion("B", "2.0.0")

	roots := []Requirement{
		rootReq("A", ">=1.0.0"),
		{Name: "B", VersionReq: OverrideAllVersion(MustVersion("1.0.0")), Parent: RootParent{}},
	}
	res := runResolve(t, catalog, roots)
	if !res.IsOk() {
		t.Fatalf("expected resolution to succeed under a global override, errors: %v", res.Errors())
	}
	got, ok := res.Mapping()["b"]
	if !ok {
		t.Fatalf("expected package b to be resolved, got %+v", res.Mapping())
	}
	if !got.Version.Equal(MustVersion("1.0.0")) {
		t.Fatalf("expected the OverrideAll pin (1.0.0) to win over A's transitive >=2.0.0, got %s", got.Version)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addVersion("A", "1.0.0", DependencyEdge{Name: "B", VersionReq: reqRange(">=1.0.0")})
	catalog.addVersion("B", "1.0.0", DependencyEdge{Name: "A", VersionReq: reqRange(">=1.0.0")})

	done := make(chan Resolution, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- Resolve(ctx, catalog, nil, catalog, Group("main"), StrategyUnset, StrategyUnset, NoRestriction(), []Requirement{rootReq("A", ">=1.0.0")}, installMode())
	}()

	select {
	case res := <-done:
		if !res.IsOk() {
			t.Fatalf("expected the A<->B cycle to resolve cleanly, errors: %v", res.Errors())
		}
		if _, ok := res.Mapping()["a"]; !ok {
			t.Fatal("expected package a to be resolved")
		}
		if _, ok := res.Mapping()["b"]; !ok {
			t.Fatal("expected package b to be resolved")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cyclic dependency caused the resolver to hang")
	}
}

func TestResolveSkipsUnlistedVersion(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addVersion("A", "1.0.0")
	catalog.addVersion("A", "1.1.0")
	catalog.unlisted["a"] = map[string]bool{"1.1.0": true}

	res := runResolve(t, catalog, []Requirement{rootReq("A", ">=1.0.0")})
	if !res.IsOk() {
		t.Fatalf("expected resolution to succeed by falling back off the unlisted version, errors: %v", res.Errors())
	}
	got := res.Mapping()["a"]
	if !got.Version.Equal(MustVersion("1.0.0")) {
		t.Fatalf("expected the unlisted 1.1.0 to be skipped in favor of 1.0.0, got %s", got.Version)
	}
}
