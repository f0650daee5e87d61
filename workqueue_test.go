package resolver

import (
	"container/heap"
	"context"
	"strings"
	"testing"
	"time"
)

func TestRequestQueueOrdersByPriorityThenSeq(t *testing.T) {
	q := &requestQueue{}
	heap.Init(q)
	heap.Push(q, &requestItem{seq: 0, priority: priorityBackgroundWork})
	heap.Push(q, &requestItem{seq: 1, priority: priorityBlockingWork})
	heap.Push(q, &requestItem{seq: 2, priority: priorityBlockingWork})
	heap.Push(q, &requestItem{seq: 3, priority: priorityLikelyRequired})

	var order []priority
	var seqs []int
	for q.Len() > 0 {
		it := heap.Pop(q).(*requestItem)
		order = append(order, it.priority)
		seqs = append(seqs, it.seq)
	}

	want := []priority{priorityBlockingWork, priorityBlockingWork, priorityLikelyRequired, priorityBackgroundWork}
	for i, p := range want {
		if order[i] != p {
			t.Fatalf("position %d: got priority %d, want %d (full order %v)", i, order[i], p, order)
		}
	}
	if seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("expected the two BlockingWork items in FIFO order by seq, got %v", seqs)
	}
}

func TestWorkQueueReprioritizeReachesCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wq := newWorkQueue(ctx, 1)
	defer wq.shutdown()

	block := make(chan struct{})
	_ = wq.submit(priorityBlockingWork, func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	})

	background := wq.submit(priorityBackgroundWork, func(ctx context.Context) (interface{}, error) {
		return "background done", nil
	})
	background.TryReprioritize(true, priorityBlockingWork)
	if background.item.priority != priorityBlockingWork {
		t.Fatalf("expected priority to have been raised to BlockingWork, got %d", background.item.priority)
	}

	close(block)
	select {
	case <-background.item.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reprioritized background task never completed")
	}
	if background.item.result != "background done" {
		t.Fatalf("expected the background task's result, got %v", background.item.result)
	}
}

func TestTryReprioritizeOnlyHigherSkipsLowering(t *testing.T) {
	it := &requestItem{priority: priorityLikelyRequired, done: make(chan struct{})}
	h := &requestHandle{item: it, queue: &workQueue{heapq: requestQueue{it}}}

	h.TryReprioritize(true, priorityBackgroundWork)
	if it.priority != priorityLikelyRequired {
		t.Fatalf("onlyHigher=true must not lower priority toward BackgroundWork, got %d", it.priority)
	}

	h.TryReprioritize(true, priorityBlockingWork)
	if it.priority != priorityBlockingWork {
		t.Fatalf("onlyHigher=true must still raise priority when the new value is more urgent, got %d", it.priority)
	}
}

func TestTryReprioritizeWithoutOnlyHigherAlwaysApplies(t *testing.T) {
	it := &requestItem{priority: priorityBlockingWork, done: make(chan struct{})}
	h := &requestHandle{item: it, queue: &workQueue{heapq: requestQueue{it}}}

	h.TryReprioritize(false, priorityBackgroundWork)
	if it.priority != priorityBackgroundWork {
		t.Fatalf("onlyHigher=false must apply the new priority unconditionally, got %d", it.priority)
	}
}

func TestGetAndReportReturnsImmediatelyWhenDone(t *testing.T) {
	ctx := context.Background()
	it := &requestItem{done: make(chan struct{}), finished: true, result: "value"}
	close(it.done)
	h := &requestHandle{item: it, queue: &workQueue{}}

	v, err := (&workQueue{}).getAndReport(ctx, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "value" {
		t.Fatalf("expected the already-finished result to be returned, got %v", v)
	}
}

func TestGetAndReportFirstTimeoutIsDetailedAndMarksHandle(t *testing.T) {
	ctx := context.Background()
	ctx = withConfig(ctx, Config{TaskTimeout: 5 * time.Millisecond})

	it := &requestItem{done: make(chan struct{}), priority: priorityBackgroundWork, name: "A", sources: []Source{{URL: "https://example.test/a"}}}
	wq := &workQueue{heapq: requestQueue{it}}
	h := &requestHandle{item: it, queue: wq}

	_, err := wq.getAndReport(ctx, h)
	if err == nil {
		t.Fatal("expected a timeout error when the handle never completes")
	}
	oracleErr, ok := err.(*OracleTimeoutError)
	if !ok {
		t.Fatalf("expected *OracleTimeoutError, got %T (%v)", err, err)
	}
	if oracleErr.Terse {
		t.Fatal("a handle's first timeout must yield the detailed (non-terse) error")
	}
	if !strings.Contains(oracleErr.Error(), "https://example.test/a") {
		t.Fatalf("expected the detailed error to enumerate source URLs, got %q", oracleErr.Error())
	}
	if it.priority != priorityBlockingWork {
		t.Fatalf("expected getAndReport to have bumped priority to BlockingWork, got %d", it.priority)
	}
	if !it.timedOut {
		t.Fatal("expected the handle to be marked timed out after its first timeout")
	}
}

func TestGetAndReportSecondCallOnSameHandleIsTerseAndDoesNotWaitAgain(t *testing.T) {
	ctx := context.Background()
	ctx = withConfig(ctx, Config{TaskTimeout: time.Hour})

	it := &requestItem{done: make(chan struct{}), priority: priorityBackgroundWork, name: "A", timedOut: true}
	wq := &workQueue{heapq: requestQueue{it}}
	h := &requestHandle{item: it, queue: wq}

	start := time.Now()
	_, err := wq.getAndReport(ctx, h)
	elapsed := time.Since(start)

	oracleErr, ok := err.(*OracleTimeoutError)
	if !ok {
		t.Fatalf("expected *OracleTimeoutError, got %T (%v)", err, err)
	}
	if !oracleErr.Terse {
		t.Fatal("a second call against an already-timed-out handle must yield the terse error")
	}
	if oracleErr.Error() != "timed out waiting for A: not waiting again" {
		t.Fatalf("unexpected terse message: %q", oracleErr.Error())
	}
	if elapsed > 100*time.Millisecond {
		t.Fatalf("expected the second call to return immediately without waiting, took %s", elapsed)
	}
}
