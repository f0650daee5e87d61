package resolver

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Prefix-by-depth tree tracing, grounded on the teacher's trace.go
// (tracePrefix, traceCheckQueue, traceBacktrack) but emitting through a
// structured github.com/sirupsen/logrus.FieldLogger instead of a bare
// log.Logger — the ecosystem choice this expansion carries, since
// rgst-io/stencil's go.mod depends on sirupsen/logrus directly for exactly
// this purpose (see DESIGN.md).
const (
	successChar = "+"
	failChar    = "x"
	backChar    = "<-"
)

// tracer wraps a logger with the depth-aware indentation the teacher's
// trace.go builds by hand from s.vqs/s.sel.projects length.
type tracer struct {
	log   logrus.FieldLogger
	quiet bool
}

func newTracer(log logrus.FieldLogger, quiet bool) *tracer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &tracer{log: log, quiet: quiet}
}

func (t *tracer) depthPrefix(depth int) string {
	return strings.Repeat("| ", depth)
}

func (t *tracer) checkQueue(depth int, name Name, candidateCount int, continuing bool) {
	if t.quiet {
		return
	}
	verb := "attempt"
	if continuing {
		verb = "continue"
	}
	t.log.WithField("depth", depth).Debugf("%s? %s %s with %d versions to try", t.depthPrefix(depth), verb, name, candidateCount)
}

func (t *tracer) startBacktrack(depth int, name Name, noMoreVersions bool) {
	if t.quiet {
		return
	}
	msg := fmt.Sprintf("%s no more versions of %s to try; begin backtrack", backChar, name)
	if !noMoreVersions {
		msg = fmt.Sprintf("%s could not introduce %s; begin backtrack", backChar, name)
	}
	t.log.WithField("depth", depth).Info(t.depthPrefix(depth) + msg)
}

func (t *tracer) backtrackPop(depth int, name Name) {
	if t.quiet {
		return
	}
	t.log.WithField("depth", depth).Debugf("%s%s backtrack: popped %s", t.depthPrefix(depth), backChar, name)
}

func (t *tracer) selected(depth int, name Name, version Version) {
	if t.quiet {
		return
	}
	t.log.WithFields(logrus.Fields{"depth": depth, "package": name.String(), "version": version.String()}).
		Infof("%s%s select %s@%s", t.depthPrefix(depth), successChar, name, version)
}

func (t *tracer) conflict(depth int, err traceError) {
	if t.quiet {
		return
	}
	t.log.WithField("depth", depth).Warnf("%s%s %s", t.depthPrefix(depth), failChar, err.traceString())
}

func (t *tracer) finish(ok bool, resolvedCount int) {
	if t.quiet {
		return
	}
	if ok {
		t.log.Infof("%s found solution with %d packages", successChar, resolvedCount)
	} else {
		t.log.Warnf("%s solving failed", failChar)
	}
}

func (t *tracer) slowConflictWarning(name Name) {
	t.log.WithField("package", name.String()).Warn("resolution is taking longer than expected; still searching")
}
