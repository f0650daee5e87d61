package resolver

import (
	"container/heap"
	"time"
)

// conflictEntry is one "known conflict": a requirement set that previously
// produced a dead end, optionally paired with the filtered-versions snapshot
// that was active for the conflicting name at the time.
type conflictEntry struct {
	requirements []Requirement
	selected     *filteredEntry
	selectedName string
}

// conflictTracker is spec.md §4.5's conflict tracker: known-conflicts replay,
// per-package conflict-history boosting, and priority-ordered requirement
// selection. Grounded on the teacher's selection.go `unselected`
// container/heap.Interface (generalized from a single project-identifier
// priority comparator to depth+boost+filter composite ordering) and
// errors.go's disjointConstraintFailure for report construction via
// ConflictError in errors.go. known-conflicts replay and conflict-history
// boosting themselves are `[EXPANSION]`: gps backtracks without memoizing
// dead ends across attempts at the same name, so this tracker is new code
// built in the teacher's own error-type idiom.
type conflictTracker struct {
	known   []conflictEntry
	history map[string]int

	lastWarnAt time.Time
	warned     bool
}

func newConflictTracker() *conflictTracker {
	return &conflictTracker{history: make(map[string]int)}
}

// getConflicts implements §4.5's get-conflicts: A = (step.open \ {r | r.graph
// ∋ current}) ∪ step.closed. A known entry replays if its requirement set is
// a subset of A (and, when it carries a selected snapshot, that snapshot
// still matches the live filtered-versions entry for its name).
func (ct *conflictTracker) getConflicts(st *step, current Requirement) []Requirement {
	a := buildConflictUniverse(st, current)

	seen := make(map[string]bool)
	var out []Requirement
	for _, entry := range ct.known {
		if entry.selected != nil {
			live, ok := st.filteredVersions[entry.selectedName]
			if !ok || !sameFilteredEntry(live, entry.selected) {
				continue
			}
		}
		if !requirementSetSubset(entry.requirements, a) {
			continue
		}
		for _, r := range entry.requirements {
			key := r.Name.canon() + "|" + r.VersionReq.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}

func buildConflictUniverse(st *step, current Requirement) []Requirement {
	var a []Requirement
	for _, r := range st.openRequirements {
		if requirementGraphContains(r, current) {
			continue
		}
		a = append(a, r)
	}
	a = append(a, st.closedRequirements...)
	return a
}

func requirementGraphContains(r Requirement, target Requirement) bool {
	for _, g := range r.Graph {
		if requirementIdentical(g, target) {
			return true
		}
	}
	return false
}

func requirementSetSubset(sub, super []Requirement) bool {
	for _, s := range sub {
		found := false
		for _, p := range super {
			if requirementIdentical(s, p) {
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

func sameFilteredEntry(a, b *filteredEntry) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.GlobalOverride != b.GlobalOverride || len(a.Versions) != len(b.Versions) {
		return false
	}
	for i := range a.Versions {
		if !a.Versions[i].Version.Equal(b.Versions[i].Version) {
			return false
		}
	}
	return true
}

// boostConflicts implements §4.5's boost-conflicts: increments the
// conflict-history counter for the currently-selected requirement's name (a
// new entry counts as the first conflict), records the conflict set paired
// with the filtered-versions snapshot for the shallowest conflicting
// requirement's name (see minimumParentConflict), and — if at least 10 seconds have elapsed
// since the last user-visible conflict and this is not a brand new
// conflict — emits a "taking longer than expected" warning via the tracer.
func (ct *conflictTracker) boostConflicts(t *tracer, filteredVersions map[string]*filteredEntry, current Requirement, conflicts []Requirement) {
	key := current.Name.canon()
	_, existed := ct.history[key]
	ct.history[key]++

	minParent := minimumParentConflict(conflicts)
	entry := conflictEntry{requirements: conflicts}
	if minParent != "" {
		if fe, ok := filteredVersions[minParent]; ok {
			entry.selected = fe
			entry.selectedName = minParent
		}
	}
	ct.known = append(ct.known, entry)

	now := time.Now()
	if existed && !ct.lastWarnAt.IsZero() && now.Sub(ct.lastWarnAt) >= 10*time.Second {
		if t != nil {
			t.slowConflictWarning(current.Name)
		}
		ct.lastWarnAt = now
	} else if ct.lastWarnAt.IsZero() {
		ct.lastWarnAt = now
	}
}

// minimumParentConflict returns the canonical name of the conflicting
// requirement with the smallest depth (the "minimum-parent-conflict" the
// spec refers to when picking which filtered-versions snapshot to pin).
// Depth ties are broken by parent name, then parent version.
func minimumParentConflict(conflicts []Requirement) string {
	if len(conflicts) == 0 {
		return ""
	}
	best := conflicts[0]
	for _, c := range conflicts[1:] {
		if c.Depth < best.Depth {
			best = c
		} else if c.Depth == best.Depth {
			cp, _ := c.Parent.(PackageParent)
			bp, _ := best.Parent.(PackageParent)
			if cp.Name.Less(bp.Name) || (cp.Name.Eq(bp.Name) && cp.Version.LessThan(bp.Version)) {
				best = c
			}
		}
	}
	return best.Name.canon()
}

// requirementPriorityQueue implements container/heap.Interface over open
// requirements ordered by (package-filter match first, conflict-history
// boost descending, depth ascending, name ascending), directly generalizing the teacher's
// selection.go `unselected` type from a single injected comparator to this
// concrete composite ordering.
type requirementPriorityQueue struct {
	reqs    []Requirement
	history map[string]int
	filter  PackageFilter
}

func (q *requirementPriorityQueue) Len() int { return len(q.reqs) }

func (q *requirementPriorityQueue) Less(i, j int) bool {
	a, b := q.reqs[i], q.reqs[j]
	af := q.filterRank(a)
	bf := q.filterRank(b)
	if af != bf {
		return af < bf
	}
	ab := q.history[a.Name.canon()]
	bb := q.history[b.Name.canon()]
	if ab != bb {
		return ab > bb
	}
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.Name.Less(b.Name)
}

func (q *requirementPriorityQueue) filterRank(r Requirement) int {
	if q.filter == nil {
		return 0
	}
	if q.filter(r.Name) {
		return 0
	}
	return 1
}

func (q *requirementPriorityQueue) Swap(i, j int) { q.reqs[i], q.reqs[j] = q.reqs[j], q.reqs[i] }
func (q *requirementPriorityQueue) Push(x interface{}) {
	q.reqs = append(q.reqs, x.(Requirement))
}
func (q *requirementPriorityQueue) Pop() interface{} {
	old := q.reqs
	n := len(old)
	v := old[n-1]
	q.reqs = old[:n-1]
	return v
}

// getCurrentRequirement implements §4.5's get-current-requirement: selects
// the minimum over open by a composite ordering that gives historically
// troublesome names (per conflict-history) a priority boost, so the search
// front-loads the most constrained names and converges faster.
func getCurrentRequirement(open []Requirement, history map[string]int, filter PackageFilter) (Requirement, bool) {
	if len(open) == 0 {
		return Requirement{}, false
	}
	q := &requirementPriorityQueue{reqs: append([]Requirement{}, open...), history: history, filter: filter}
	heap.Init(q)
	return q.reqs[0], true
}
