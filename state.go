package resolver

import "context"

// stage is the explicit three-valued discriminator §4.6/§9 call for:
// "replace the native call-stack recursion with an explicit stack of frames
// and a loop that dispatches on a three-valued Stage discriminator."
// Grounded directly on the teacher's solver.go solve()/backtrack() loop and
// its explicit s.vqs stack — the teacher already avoids deep native
// recursion via that stack; this type makes the three phases an explicit,
// named state instead of implicit control flow threaded through goroutine
// calls.
type stage int

const (
	stageStep stage = iota
	stageOuter
	stageInner
)

// step is spec.md §3's immutable ResolverStep snapshot. Re-created on each
// descent (the interior maps are never mutated in place once stored in a
// step — updater functions return a new map), restored verbatim on
// backtracking by popping the prior-step stack.
type step struct {
	relax              bool
	filteredVersions   map[string]*filteredEntry
	currentResolution  map[string]Resolved
	closedRequirements []Requirement
	openRequirements   []Requirement
	group              Group
}

func (s *step) clone() *step {
	fv := make(map[string]*filteredEntry, len(s.filteredVersions))
	for k, v := range s.filteredVersions {
		fv[k] = v
	}
	cr := make(map[string]Resolved, len(s.currentResolution))
	for k, v := range s.currentResolution {
		cr[k] = v
	}
	return &step{
		relax:              s.relax,
		filteredVersions:   fv,
		currentResolution:  cr,
		closedRequirements: append([]Requirement{}, s.closedRequirements...),
		openRequirements:   append([]Requirement{}, s.openRequirements...),
		group:              s.group,
	}
}

// frame is one entry in the explicit prior-step stack (§9's "StackPack"
// distinction between immutable steps and the monotonically-accumulating
// caches/histories carried alongside them).
type frame struct {
	st             *step
	current        Requirement
	candidates     []VersionCache
	candidateIdx   int
	firstTrial     bool
	ready          bool
	hasUnlisted    bool
	useUnlisted    bool
	unlistedSearch bool
}

// driver owns the whole search: the explicit frame stack, the monotonically
// accumulating caches (explored-package cache, conflict tracker), and the
// collaborators (work queue, prefetcher, oracles, tracer) the state machine
// calls out to. Grounded on the teacher's solver struct (params, sel, rpt,
// vqs, unsel, attempts fields) collapsed to this package's equivalents.
type driver struct {
	stack []*frame

	cache    *exploredCache
	conflicts *conflictTracker
	wq       *workQueue
	pf       *prefetcher
	tr       *tracer

	preferred      PreferredVersionLister
	fetcher        DetailsFetcher
	group          Group
	globalDirect   Strategy
	globalTransitive Strategy
	globalRestriction Restriction
	updateMode     UpdateMode

	errs       []error
	tryRelaxed bool
}

func (d *driver) push(f *frame) { d.stack = append(d.stack, f) }

func (d *driver) top() *frame {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

func (d *driver) pop() *frame {
	n := len(d.stack)
	f := d.stack[n-1]
	d.stack = d.stack[:n-1]
	return f
}

// solve runs the Step/Outer/Inner loop to completion, returning a Resolution.
// Grounded directly on the teacher's solver.solve(): a for-loop dispatching
// on explicit state, backtracking by restoring a popped frame's step rather
// than recursing back out of nested calls.
func (d *driver) solve(ctx context.Context) Resolution {
	if len(d.stack) == 0 {
		root := &step{
			filteredVersions:  make(map[string]*filteredEntry),
			currentResolution: make(map[string]Resolved),
			group:             d.group,
		}
		d.push(&frame{st: root, firstTrial: true})
	}

	st := stageStep
	for {
		if err := ctx.Err(); err != nil {
			return d.finish(false, nil, &ConflictError{Name: "", Requirements: nil})
		}

		switch st {
		case stageStep:
			cur := d.top()
			if len(cur.st.openRequirements) == 0 {
				mapping := cleanupNames(cur.st.currentResolution)
				return d.finish(true, mapping, nil)
			}
			req, ok := getCurrentRequirement(cur.st.openRequirements, d.conflicts.history, d.filterFor(cur.st.group))
			if !ok {
				mapping := cleanupNames(cur.st.currentResolution)
				return d.finish(true, mapping, nil)
			}
			cur.current = req

			conflicts := d.conflicts.getConflicts(cur.st, req)
			if len(conflicts) > 0 {
				fused, ok := d.fuseConflicts(conflicts)
				if !ok {
					return d.finish(false, nil, &ConflictError{Name: req.Name, Requirements: conflicts, Resolved: cur.st.currentResolution})
				}
				d.stack = fused
				st = stageOuter
				continue
			}
			st = stageOuter

		case stageOuter:
			cur := d.top()
			if cur.ready {
				conflicts := d.conflicts.getConflicts(cur.st, cur.current)
				d.conflicts.boostConflicts(d.tr, cur.st.filteredVersions, cur.current, conflicts)
				fused, ok := d.fuseConflicts(conflicts)
				if !ok {
					return d.finish(false, nil, &ConflictError{Name: cur.current.Name, Requirements: conflicts, Resolved: cur.st.currentResolution})
				}
				d.stack = fused
				continue
			}

			sameName := sameNameRequirements(cur.st.openRequirements, cur.current.Name)
			candidates, tryRelaxed, err := selectCandidates(ctx, cur.st, d.wq, d.pf, d.preferred, cur.current.Name, cur.current, sameName, d.globalDirect, d.globalTransitive)
			if err != nil {
				d.errs = append(d.errs, err)
				candidates = nil
			}
			cur.candidates = candidates
			cur.candidateIdx = 0
			if tryRelaxed {
				d.tryRelaxed = true
			}
			d.tr.checkQueue(len(d.stack), cur.current.Name, len(candidates), !cur.firstTrial)
			cur.firstTrial = false
			st = stageInner

		case stageInner:
			cur := d.top()
			keepLooping := cur.candidateIdx < len(cur.candidates)
			if !keepLooping {
				if cur.hasUnlisted && !cur.useUnlisted && !cur.unlistedSearch {
					cur.useUnlisted = true
					cur.unlistedSearch = true
					cur.ready = false
					st = stageOuter
					continue
				}
				d.tr.startBacktrack(len(d.stack), cur.current.Name, !cur.hasUnlisted)
				cur.ready = true
				st = stageOuter
				continue
			}

			vc := cur.candidates[cur.candidateIdx]
			cur.candidateIdx++

			resolved, err := d.cache.explore(ctx, d.pf, d.fetcher, cur.current.Sources, cur.st.group, cur.current.Name, vc.Version, d.globalRestriction, effectiveRestriction(cur.current.Restrictions))
			if err != nil {
				d.errs = append(d.errs, err)
				continue
			}
			if resolved.Unlisted && !cur.useUnlisted {
				cur.hasUnlisted = true
				continue
			}

			if bad, badResolved, ok := checkAgainstExisting(cur.st, resolved.Dependencies); ok {
				_ = bad
				_ = badResolved
				continue
			}

			d.pf.schedule(ctx, resolved.Dependencies, cur.current.Sources)

			nextOpen, err := calcOpenRequirements(cur.st, resolved, vc, cur.current, d.globalRestriction)
			if err != nil {
				return d.finish(false, nil, &ConflictError{Name: cur.current.Name, Resolved: cur.st.currentResolution})
			}

			next := cur.st.clone()
			next.closedRequirements = append(next.closedRequirements, cur.current)
			next.openRequirements = nextOpen
			next.currentResolution[cur.current.Name.canon()] = resolved
			if fe, ok := next.filteredVersions[cur.current.Name.canon()]; !ok || fe == nil {
				next.filteredVersions[cur.current.Name.canon()] = &filteredEntry{Versions: cur.candidates, GlobalOverride: cur.current.VersionReq.IsGlobalOverride()}
			}

			d.tr.selected(len(d.stack), resolved.Name, resolved.Version)
			d.push(&frame{st: next, firstTrial: true})
			st = stageStep
		}
	}
}

func (d *driver) filterFor(g Group) PackageFilter {
	if d.updateMode.Kind == UpdateFilteredKind && d.updateMode.Group == g {
		return d.updateMode.Filter
	}
	return nil
}

// fuseConflicts implements §4.6's conflict fusion on backtrack: compute the
// union of each conflicting requirement's own name and every name on its
// parent chain, then pop frames until one whose current requirement's name
// lies in that union — jumping back to the nearest decision actually
// involved in the conflict instead of popping one level at a time.
func (d *driver) fuseConflicts(conflicts []Requirement) ([]*frame, bool) {
	implicated := make(map[string]bool)
	for _, c := range conflicts {
		implicated[c.Name.canon()] = true
		for _, p := range c.chain() {
			if pp, ok := p.(PackageParent); ok {
				implicated[pp.Name.canon()] = true
			}
		}
	}

	stack := append([]*frame{}, d.stack...)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if implicated[top.current.Name.canon()] {
			top.ready = false
			return stack, true
		}
		if len(stack) == 1 {
			return nil, false
		}
		d.tr.backtrackPop(len(stack), top.current.Name)
		stack = stack[:len(stack)-1]
	}
	return nil, false
}

func sameNameRequirements(open []Requirement, name Name) []Requirement {
	var out []Requirement
	for _, r := range open {
		if r.Name.Eq(name) {
			out = append(out, r)
		}
	}
	return out
}

// cleanupNames rewrites every resolved package's dependency name tokens to
// the canonical casing bound in the resolution (§4.6): names compare
// case-insensitively but the user-visible casing is whichever one was
// actually resolved.
func cleanupNames(resolution map[string]Resolved) map[string]Resolved {
	canonical := make(map[string]Name, len(resolution))
	for _, r := range resolution {
		canonical[r.Name.canon()] = r.Name
	}

	out := make(map[string]Resolved, len(resolution))
	for k, r := range resolution {
		deps := make([]DependencyEdge, len(r.Dependencies))
		for i, d := range r.Dependencies {
			d2 := d
			if n, ok := canonical[d.Name.canon()]; ok {
				d2.Name = n
			}
			deps[i] = d2
		}
		r2 := r
		r2.Dependencies = deps
		out[k] = r2
	}
	return out
}

func (d *driver) finish(ok bool, mapping map[string]Resolved, conflict *ConflictError) Resolution {
	d.tr.finish(ok, len(mapping))
	errs := toMultierror(d.errs)
	if ok {
		return Ok(mapping, errs)
	}
	conflict.TryRelaxed = d.tryRelaxed
	d.tr.conflict(len(d.stack), conflict)
	return ConflictResolution(conflict, errs)
}
