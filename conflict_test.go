package resolver

import "testing"

func TestGetConflictsReplaysSubsetEntry(t *testing.T) {
	ct := newConflictTracker()
	a := Requirement{Name: "A", VersionReq: reqRange(">=1.0.0"), Parent: RootParent{}, Depth: 0}
	b := Requirement{Name: "B", VersionReq: reqRange(">=2.0.0"), Parent: RootParent{}, Depth: 0}
	ct.known = []conflictEntry{{requirements: []Requirement{a, b}}}

	current := Requirement{Name: "C", VersionReq: reqRange(">=1.0.0"), Parent: RootParent{}, Depth: 1}
	st := &step{
		openRequirements:   []Requirement{a, b, current},
		closedRequirements: nil,
	}

	got := ct.getConflicts(st, current)
	if len(got) != 2 {
		t.Fatalf("expected both known-conflict requirements to replay, got %d: %+v", len(got), got)
	}
}

func TestGetConflictsSkipsWhenSnapshotStale(t *testing.T) {
	ct := newConflictTracker()
	a := Requirement{Name: "A", VersionReq: reqRange(">=1.0.0"), Parent: RootParent{}}
	staleEntry := &filteredEntry{Versions: []VersionCache{{Version: MustVersion("1.0.0")}}}
	ct.known = []conflictEntry{{
		requirements: []Requirement{a},
		selected:     staleEntry,
		selectedName: "a",
	}}

	current := Requirement{Name: "C", Parent: RootParent{}}
	st := &step{
		openRequirements: []Requirement{a, current},
		filteredVersions: map[string]*filteredEntry{
			"a": {Versions: []VersionCache{{Version: MustVersion("2.0.0")}}},
		},
	}

	got := ct.getConflicts(st, current)
	if len(got) != 0 {
		t.Fatalf("expected the stale snapshot to suppress replay, got %+v", got)
	}
}

func TestBoostConflictsIncrementsHistory(t *testing.T) {
	ct := newConflictTracker()
	tr := newTracer(nil, true)
	current := Requirement{Name: "A", Depth: 2}
	conflicts := []Requirement{
		{Name: "A", Depth: 2},
		{Name: "B", Depth: 0},
	}

	ct.boostConflicts(tr, map[string]*filteredEntry{}, current, conflicts)
	if ct.history["a"] != 1 {
		t.Fatalf("expected history[a] == 1 after first conflict, got %d", ct.history["a"])
	}
	ct.boostConflicts(tr, map[string]*filteredEntry{}, current, conflicts)
	if ct.history["a"] != 2 {
		t.Fatalf("expected history[a] == 2 after second conflict, got %d", ct.history["a"])
	}
	if len(ct.known) != 2 {
		t.Fatalf("expected both boosts to record a known-conflict entry, got %d", len(ct.known))
	}
}

func TestBoostConflictsPinsMinimumDepthParentSnapshot(t *testing.T) {
	ct := newConflictTracker()
	tr := newTracer(nil, true)
	current := Requirement{Name: "A", Depth: 2}
	conflicts := []Requirement{
		{Name: "A", Depth: 2},
		{Name: "B", Depth: 0},
	}
	filtered := map[string]*filteredEntry{
		"b": {Versions: []VersionCache{{Version: MustVersion("1.0.0")}}},
	}

	ct.boostConflicts(tr, filtered, current, conflicts)
	entry := ct.known[0]
	if entry.selectedName != "b" {
		t.Fatalf("expected the minimum-depth conflicting name (b) to be pinned, got %q", entry.selectedName)
	}
	if entry.selected != filtered["b"] {
		t.Fatal("expected the pinned snapshot to be the live filtered-versions entry for b")
	}
}

// TestGetCurrentRequirementBoostOrdering is spec.md §8's concrete scenario:
// after three conflicts at name X, the next iteration selects a requirement
// on X before a same-depth requirement on an un-conflicted name.
func TestGetCurrentRequirementBoostOrdering(t *testing.T) {
	history := map[string]int{"x": 3}
	open := []Requirement{
		{Name: "Y", Depth: 1},
		{Name: "X", Depth: 1},
	}

	got, ok := getCurrentRequirement(open, history, nil)
	if !ok {
		t.Fatal("expected a requirement to be selected")
	}
	if !got.Name.Eq("X") {
		t.Fatalf("expected the boosted name X to be selected first, got %s", got.Name)
	}
}

func TestGetCurrentRequirementFilterRankBeatsBoost(t *testing.T) {
	history := map[string]int{"x": 3}
	open := []Requirement{
		{Name: "X", Depth: 1},
		{Name: "Y", Depth: 1},
	}
	filter := func(n Name) bool { return n.Eq("Y") }

	got, ok := getCurrentRequirement(open, history, filter)
	if !ok {
		t.Fatal("expected a requirement to be selected")
	}
	if !got.Name.Eq("Y") {
		t.Fatalf("expected the filter-matching name Y to outrank X's conflict boost, got %s", got.Name)
	}
}

func TestGetCurrentRequirementTiesBreakByDepthThenName(t *testing.T) {
	open := []Requirement{
		{Name: "B", Depth: 2},
		{Name: "A", Depth: 1},
		{Name: "C", Depth: 1},
	}
	got, ok := getCurrentRequirement(open, map[string]int{}, nil)
	if !ok {
		t.Fatal("expected a requirement to be selected")
	}
	if !got.Name.Eq("A") {
		t.Fatalf("expected the shallower, alphabetically-first name A to win, got %s", got.Name)
	}
}

func TestGetCurrentRequirementEmptyOpen(t *testing.T) {
	if _, ok := getCurrentRequirement(nil, map[string]int{}, nil); ok {
		t.Fatal("expected no requirement to be selected from an empty open set")
	}
}
