package resolver

import "testing"

func TestFilterByRestrictionsNoRestriction(t *testing.T) {
	deps := []DependencyEdge{
		{Name: "A", Restrictions: AutoDetectRestriction()},
		{Name: "B", Restrictions: ExplicitRestriction(RestrictionFor("net472"))},
	}
	out := filterByRestrictions(NoRestriction(), deps)
	if len(out) != len(deps) {
		t.Fatalf("NoRestriction must keep every dependency, got %d want %d", len(out), len(deps))
	}
}

func TestFilterByRestrictionsIntersects(t *testing.T) {
	deps := []DependencyEdge{
		{Name: "A", Restrictions: ExplicitRestriction(RestrictionFor("net472"))},
		{Name: "B", Restrictions: ExplicitRestriction(RestrictionFor("netstandard2.0"))},
		{Name: "C", Restrictions: AutoDetectRestriction()},
	}
	out := filterByRestrictions(RestrictionFor("net472"), deps)
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving dependencies, got %d", len(out))
	}
	names := map[string]bool{}
	for _, d := range out {
		names[string(d.Name)] = true
	}
	if !names["A"] || !names["C"] {
		t.Fatalf("expected A (matching restriction) and C (unrestricted) to survive, got %v", out)
	}
}

func TestFindFirstIncompatibility(t *testing.T) {
	st := &step{}
	resolved := Resolved{Name: "B", Version: MustVersion("1.0.0")}
	req, _ := ParseVersionRange(">=2.0.0")
	deps := []DependencyEdge{
		{Name: "B", VersionReq: VersionRequirement{Range: req, Prereleases: NoPrerelease()}},
	}
	bad, ok := findFirstIncompatibility(st, deps, resolved)
	if !ok {
		t.Fatal("expected an incompatibility for B@1.0.0 against >=2.0.0")
	}
	if !bad.Name.Eq("B") {
		t.Fatalf("expected the incompatible edge to name B, got %s", bad.Name)
	}
}

func TestFindFirstIncompatibilityNoneWhenSatisfied(t *testing.T) {
	st := &step{}
	resolved := Resolved{Name: "B", Version: MustVersion("2.5.0")}
	req, _ := ParseVersionRange(">=2.0.0")
	deps := []DependencyEdge{
		{Name: "B", VersionReq: VersionRequirement{Range: req, Prereleases: NoPrerelease()}},
	}
	if _, ok := findFirstIncompatibility(st, deps, resolved); ok {
		t.Fatal("did not expect an incompatibility for B@2.5.0 against >=2.0.0")
	}
}

func TestCheckAgainstExisting(t *testing.T) {
	req, _ := ParseVersionRange("<2.0.0")
	st := &step{
		currentResolution: map[string]Resolved{
			"b": {Name: "B", Version: MustVersion("2.0.0")},
		},
	}
	deps := []DependencyEdge{
		{Name: "B", VersionReq: VersionRequirement{Range: req, Prereleases: NoPrerelease()}},
	}
	_, existing, ok := checkAgainstExisting(st, deps)
	if !ok {
		t.Fatal("expected a conflict: B is already resolved at 2.0.0 but the new edge requires <2.0.0")
	}
	if !existing.Name.Eq("B") {
		t.Fatalf("expected conflicting package to be B, got %s", existing.Name)
	}
}
