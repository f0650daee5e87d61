package resolver

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

func toMultierror(errs []error) *multierror.Error {
	var agg *multierror.Error
	for _, e := range errs {
		agg = multierror.Append(agg, e)
	}
	return agg
}

// Resolve is the package's main entry point (§6): given the three injected
// oracles, a group, the global strategy/restriction defaults, the root
// requirements, and an update mode, produce a Resolution. Grounded on the
// teacher's solver.Prepare()/Solve() pair (SolveParameters validation, then
// a single solve() call), collapsed into one function since this package has
// no separate "prepare" phase to expose — callers supply fully-formed
// oracles and requirements directly.
func Resolve(
	ctx context.Context,
	lister VersionLister,
	preferred PreferredVersionLister,
	fetcher DetailsFetcher,
	group Group,
	globalDirectStrategy, globalTransitiveStrategy Strategy,
	globalFrameworkRestrictions Restriction,
	rootRequirements []Requirement,
	updateMode UpdateMode,
) Resolution {
	log := logrus.StandardLogger()
	cfg := LoadConfig(log)

	qctx, cancel := context.WithCancel(ctx)
	qctx = withConfig(qctx, cfg)
	qctx = withFetcher(qctx, fetcher)
	qctx = withLister(qctx, lister)
	qctx = withLogger(qctx, log)
	defer cancel()

	res := runSearch(qctx, cfg, lister, preferred, fetcher, group, globalDirectStrategy, globalTransitiveStrategy, globalFrameworkRestrictions, rootRequirements, updateMode, false)
	if !res.IsOk() && shouldRelax(res) {
		log.Info("strict pass failed with try-relaxed signal; retrying in relaxed mode")
		res = runSearch(qctx, cfg, lister, preferred, fetcher, group, globalDirectStrategy, globalTransitiveStrategy, globalFrameworkRestrictions, rootRequirements, updateMode, true)
	}
	return res
}

// shouldRelax implements §7's relaxation retry: a Conflict result is
// eligible for exactly one relaxed retry when the search surfaced §4.3's
// "try-relaxed = true" signal — some candidate selection along the way found
// a non-empty prerelease-admitted fallback outside relaxed mode. The signal
// is computed by selectCandidates (versions.go), threaded through the driver
// (state.go's d.tryRelaxed), and stamped onto the ConflictError in finish.
func shouldRelax(res Resolution) bool {
	c := res.Conflict()
	if c == nil {
		return false
	}
	return c.TryRelaxed
}

func runSearch(
	ctx context.Context,
	cfg Config,
	lister VersionLister,
	preferred PreferredVersionLister,
	fetcher DetailsFetcher,
	group Group,
	globalDirectStrategy, globalTransitiveStrategy Strategy,
	globalFrameworkRestrictions Restriction,
	rootRequirements []Requirement,
	updateMode UpdateMode,
	relax bool,
) Resolution {
	wq := newWorkQueue(ctx, cfg.Workers)
	defer wq.shutdown()

	pf := newPrefetcher(wq, group)
	tr := newTracer(loggerFromContext(ctx), false)

	d := &driver{
		cache:             newExploredCache(),
		conflicts:         newConflictTracker(),
		wq:                wq,
		pf:                pf,
		tr:                tr,
		preferred:         preferred,
		fetcher:           fetcher,
		group:             group,
		globalDirect:      globalDirectStrategy,
		globalTransitive:  globalTransitiveStrategy,
		globalRestriction: globalFrameworkRestrictions,
		updateMode:        updateMode,
	}

	root := &step{
		relax:              relax,
		filteredVersions:   make(map[string]*filteredEntry),
		currentResolution:  make(map[string]Resolved),
		openRequirements:   append([]Requirement{}, rootRequirements...),
		closedRequirements: nil,
		group:              group,
	}
	d.stack = []*frame{{st: root, firstTrial: true}}

	return d.solve(ctx)
}
