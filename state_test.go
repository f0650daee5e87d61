package resolver

import "testing"

// TestCleanupNamesIdempotent covers §4.6's name-canonicalization rewrite:
// applying it twice must be a no-op, since the second pass sees dependency
// names that are already in their canonical casing.
func TestCleanupNamesIdempotent(t *testing.T) {
	resolution := map[string]Resolved{
		"a": {
			Name:    "A",
			Version: MustVersion("1.0.0"),
			Dependencies: []DependencyEdge{
				{Name: "b", VersionReq: reqRange(">=1.0.0")},
			},
		},
		"b": {Name: "B", Version: MustVersion("1.0.0")},
	}

	once := cleanupNames(resolution)
	twice := cleanupNames(once)

	if len(once["a"].Dependencies) != 1 || once["a"].Dependencies[0].Name != "B" {
		t.Fatalf("expected the dependency name to be rewritten to canonical casing B, got %+v", once["a"].Dependencies)
	}
	if len(twice["a"].Dependencies) != 1 || twice["a"].Dependencies[0].Name != once["a"].Dependencies[0].Name {
		t.Fatalf("expected a second cleanupNames pass to be a no-op, got %+v vs %+v", twice["a"].Dependencies, once["a"].Dependencies)
	}
}

func TestFuseConflictsPopsToImplicatedFrame(t *testing.T) {
	d := &driver{tr: newTracer(nil, true)}
	rootFrame := &frame{current: Requirement{Name: "A"}}
	midFrame := &frame{current: Requirement{Name: "B"}}
	leafFrame := &frame{current: Requirement{Name: "C"}}
	d.stack = []*frame{rootFrame, midFrame, leafFrame}

	conflicts := []Requirement{{Name: "B", Parent: RootParent{}}}
	stack, ok := d.fuseConflicts(conflicts)
	if !ok {
		t.Fatal("expected fuseConflicts to find the implicated frame")
	}
	if len(stack) != 2 {
		t.Fatalf("expected the stack to be popped back to the B frame, got %d frames", len(stack))
	}
	if !stack[len(stack)-1].current.Name.Eq("B") {
		t.Fatalf("expected the top frame to be the one whose current requirement is named B, got %s", stack[len(stack)-1].current.Name)
	}
	if stack[len(stack)-1].ready {
		t.Fatal("expected the implicated frame's ready flag to be reset so it re-enters candidate selection")
	}
}

func TestFuseConflictsExhaustsStackWhenNothingImplicated(t *testing.T) {
	d := &driver{tr: newTracer(nil, true)}
	d.stack = []*frame{
		{current: Requirement{Name: "A"}},
		{current: Requirement{Name: "B"}},
	}

	conflicts := []Requirement{{Name: "Z", Parent: RootParent{}}}
	_, ok := d.fuseConflicts(conflicts)
	if ok {
		t.Fatal("expected fuseConflicts to fail when no frame on the stack is implicated")
	}
}
