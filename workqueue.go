package resolver

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// priority is a request's scheduling class; lower values are serviced first.
// Grounded on spec.md §4.8's BackgroundWork/MightBeRequired/LikelyRequired/
// BlockingWork ladder.
type priority int

const (
	priorityBackgroundWork priority = 10
	priorityMightBeRequired priority = 5
	priorityLikelyRequired  priority = 3
	priorityBlockingWork    priority = 1
)

type workFunc func(ctx context.Context) (interface{}, error)

// requestItem is one submitted unit of work sitting in the priority heap.
// Grounded on the teacher's selection.go `unselected` container/heap.Interface
// implementation, generalized from a version-queue comparator to a plain
// integer priority plus an insertion sequence for FIFO tie-breaking.
type requestItem struct {
	seq      int
	priority priority
	fn       workFunc
	index    int
	done     chan struct{}
	mu       sync.Mutex
	result   interface{}
	err      error
	finished bool

	// timedOut records that a prior getAndReport call on this handle already
	// gave up waiting. A later call against the same handle short-circuits
	// to the terse error instead of waiting again.
	timedOut bool
	name     Name
	sources  []Source
}

// requestQueue implements container/heap.Interface ordered by (priority,
// seq) — lowest priority value first, FIFO within a priority tier.
type requestQueue []*requestItem

func (q requestQueue) Len() int { return len(q) }
func (q requestQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q requestQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *requestQueue) Push(x interface{}) {
	it := x.(*requestItem)
	it.index = len(*q)
	*q = append(*q, it)
}
func (q *requestQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}

// requestHandle is the caller-facing view of a submitted request: a
// reprioritizable, cancellable promise for the result of an oracle request
// (the spec's "Work handle").
type requestHandle struct {
	item  *requestItem
	queue *workQueue
}

// TryReprioritize lowers the priority only if onlyHigher is false, or if the
// new priority is numerically lower (higher urgency) than the current one.
func (h *requestHandle) TryReprioritize(onlyHigher bool, p priority) {
	h.item.mu.Lock()
	cur := h.item.priority
	should := !onlyHigher || p < cur
	h.item.mu.Unlock()
	if should {
		h.Reprioritize(p)
	}
}

// Reprioritize updates the request's priority and re-heapifies it if still
// pending.
func (h *requestHandle) Reprioritize(p priority) {
	h.queue.reprioritize(h.item, p)
}

func (h *requestHandle) isDone() bool {
	select {
	case <-h.item.done:
		return true
	default:
		return false
	}
}

// workQueue is the bounded-worker priority work queue described in spec.md
// §4.8: a priority-minimum mutable queue with a fixed worker count, dynamic
// reprioritization, cancellation, and per-request timeout discipline.
// Grounded on the teacher's selection.go priority-heap idiom plus
// golang.org/x/sync/semaphore for bounding concurrent worker slots, matching
// the concurrency stack this expansion adopts from the pack (§2 EXPANSION row).
type workQueue struct {
	mu      sync.Mutex
	heapq   requestQueue
	seq     int
	sem     *semaphore.Weighted
	workers int
	cancel  context.CancelFunc
	ctx     context.Context
	wg      sync.WaitGroup
	closed  bool
}

// newWorkQueue starts one background dispatcher goroutine that drains the
// priority heap until ctx is cancelled, running at most `workers` requests
// at a time.
func newWorkQueue(ctx context.Context, workers int) *workQueue {
	qctx, cancel := context.WithCancel(ctx)
	q := &workQueue{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		ctx:     qctx,
		cancel:  cancel,
	}
	q.wg.Add(1)
	go q.startProcessing(qctx)
	return q
}

// submit enqueues fn at the given priority and returns its handle.
// The item is pushed onto the heap; the dispatcher in startProcessing polls
// the heap and picks it up.
func (q *workQueue) submit(p priority, fn workFunc) *requestHandle {
	return q.submitNamed(p, "", nil, fn)
}

// submitNamed is submit plus the (name, sources) an OracleTimeoutError needs
// to report which sources a stalled request was waiting on.
func (q *workQueue) submitNamed(p priority, name Name, sources []Source, fn workFunc) *requestHandle {
	q.mu.Lock()
	it := &requestItem{seq: q.seq, priority: p, fn: fn, done: make(chan struct{}), name: name, sources: sources}
	q.seq++
	heap.Push(&q.heapq, it)
	q.mu.Unlock()
	return &requestHandle{item: it, queue: q}
}

func (q *workQueue) reprioritize(it *requestItem, p priority) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it.mu.Lock()
	it.priority = p
	it.mu.Unlock()
	if it.index >= 0 && it.index < len(q.heapq) {
		heap.Fix(&q.heapq, it.index)
	}
}

func (q *workQueue) popNext() *requestItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heapq) == 0 {
		return nil
	}
	return heap.Pop(&q.heapq).(*requestItem)
}

// startProcessing loops on get-work until cancellation, running each task
// inside the execution wrapper described in §4.8/§5 (500ms soft deadline
// after cancellation, 1s hard deadline before the wrapper gives up on it).
func (q *workQueue) startProcessing(ctx context.Context) {
	defer q.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		it := q.popNext()
		if it == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Millisecond):
				continue
			}
		}
		if err := q.sem.Acquire(ctx, 1); err != nil {
			q.failItem(it, ctx.Err())
			return
		}
		go q.runItem(ctx, it)
	}
}

func (q *workQueue) runItem(ctx context.Context, it *requestItem) {
	defer q.sem.Release(1)

	taskCtx, taskCancel := context.WithCancel(ctx)
	defer taskCancel()

	resultCh := make(chan workResultPair, 1)
	go func() {
		v, err := it.fn(taskCtx)
		resultCh <- workResultPair{v, err}
	}()

	select {
	case r := <-resultCh:
		q.completeItem(it, r.value, r.err)
		return
	case <-ctx.Done():
	}

	// Soft deadline: give the in-flight task 500ms after cancellation.
	softTimer := time.NewTimer(500 * time.Millisecond)
	defer softTimer.Stop()
	select {
	case r := <-resultCh:
		q.completeItem(it, r.value, r.err)
		return
	case <-softTimer.C:
	}

	// Hard deadline: another 1s before the wrapper abandons the task. The
	// underlying goroutine may still finish in the background; its result is
	// simply discarded.
	taskCancel()
	hardTimer := time.NewTimer(1 * time.Second)
	defer hardTimer.Stop()
	select {
	case r := <-resultCh:
		q.completeItem(it, r.value, r.err)
	case <-hardTimer.C:
		q.failItem(it, fmt.Errorf("work item cancelled: hard deadline exceeded"))
	}
}

type workResultPair struct {
	value interface{}
	err   error
}

func (q *workQueue) completeItem(it *requestItem, v interface{}, err error) {
	it.mu.Lock()
	if it.finished {
		it.mu.Unlock()
		return
	}
	it.result, it.err, it.finished = v, err, true
	it.mu.Unlock()
	close(it.done)
}

func (q *workQueue) failItem(it *requestItem, err error) {
	q.completeItem(it, nil, err)
}

// getAndReport is the "blocking get-and-report" helper from §4.8: consumes a
// handle by returning immediately if already completed, otherwise bumping
// priority to BlockingWork and waiting up to timeout once. On timeout it
// fails immediately with a detailed *OracleTimeoutError enumerating the
// sources the request was waiting on, and marks the handle timed out. A
// later, separate call against that same already-timed-out handle does not
// wait again — it returns the terse *OracleTimeoutError variant at once.
func (q *workQueue) getAndReport(ctx context.Context, h *requestHandle) (interface{}, error) {
	if h.isDone() {
		return h.item.result, h.item.err
	}

	h.item.mu.Lock()
	alreadyTimedOut := h.item.timedOut
	h.item.mu.Unlock()
	if alreadyTimedOut {
		return nil, &OracleTimeoutError{Name: h.item.name, Sources: h.item.sources, Terse: true}
	}

	h.Reprioritize(priorityBlockingWork)

	timeout := defaultTaskTimeout
	if cfg := configFromContext(ctx); cfg != nil {
		timeout = cfg.TaskTimeout
	}

	select {
	case <-h.item.done:
		return h.item.result, h.item.err
	case <-time.After(timeout):
		h.item.mu.Lock()
		h.item.timedOut = true
		h.item.mu.Unlock()
		return nil, &OracleTimeoutError{Name: h.item.name, Sources: h.item.sources, Terse: false}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// submitDetails and submitVersions are thin convenience wrappers used by
// prefetch.go's memoized handles so callers don't build workFunc closures inline.
func (q *workQueue) submitDetails(ctx context.Context, sources []Source, group Group, name Name, v Version, p priority) *requestHandle {
	return q.submitNamed(p, name, sources, func(ctx context.Context) (interface{}, error) {
		fetcher := fetcherFromContext(ctx)
		return fetcher.FetchDetails(ctx, sources, group, name, v)
	})
}

func (q *workQueue) submitVersions(ctx context.Context, sources []Source, group Group, name Name, p priority) *requestHandle {
	return q.submitNamed(p, name, sources, func(ctx context.Context) (interface{}, error) {
		lister := listerFromContext(ctx)
		return lister.ListVersions(ctx, sources, group, name)
	})
}

// shutdown cancels the queue's internal context and waits for the
// background driver to exit. Per §5: "the work queue ... [is] released on
// algorithm exit regardless of success, failure, or exception".
func (q *workQueue) shutdown() {
	q.cancel()
	q.wg.Wait()
}
