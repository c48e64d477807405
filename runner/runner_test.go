package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ragweave/ragweave/engine"
)

type stubAsker struct {
	mu      sync.Mutex
	active  int32
	maxSeen int32
	delay   time.Duration
	err     error
}

func (s *stubAsker) Ask(ctx context.Context, query string) (*engine.Result, error) {
	cur := atomic.AddInt32(&s.active, 1)
	defer atomic.AddInt32(&s.active, -1)

	s.mu.Lock()
	if cur > s.maxSeen {
		s.maxSeen = cur
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &engine.Result{Answer: "answer to " + query}, nil
}

func TestRunBatchReturnsInTaskOrder(t *testing.T) {
	asker := &stubAsker{}
	r := New(asker, 4)

	tasks := []*Task{
		{ID: "a", Query: "first"},
		{ID: "b", Query: "second"},
		{ID: "c", Query: "third"},
	}
	results := r.RunBatch(context.Background(), tasks)

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, task := range tasks {
		if results[i].TaskID != task.ID {
			t.Errorf("results[%d].TaskID = %s, want %s", i, results[i].TaskID, task.ID)
		}
		if results[i].Error != nil {
			t.Errorf("task %s failed: %v", task.ID, results[i].Error)
		}
		if results[i].Result.Answer != "answer to "+task.Query {
			t.Errorf("task %s answer = %q", task.ID, results[i].Result.Answer)
		}
	}
}

func TestRunBatchBoundsConcurrency(t *testing.T) {
	asker := &stubAsker{delay: 20 * time.Millisecond}
	r := New(asker, 2)

	tasks := make([]*Task, 6)
	for i := range tasks {
		tasks[i] = &Task{ID: string(rune('a' + i)), Query: "q"}
	}
	r.RunBatch(context.Background(), tasks)

	if asker.maxSeen > 2 {
		t.Errorf("max concurrent asks = %d, want <= 2", asker.maxSeen)
	}
}

func TestRunBatchReportsErrors(t *testing.T) {
	wantErr := errors.New("model unavailable")
	r := New(&stubAsker{err: wantErr}, 1)

	results := r.RunBatch(context.Background(), []*Task{{ID: "a", Query: "q"}})
	if !errors.Is(results[0].Error, wantErr) {
		t.Errorf("Error = %v, want %v", results[0].Error, wantErr)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	r := New(&stubAsker{delay: 50 * time.Millisecond}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Occupy the only slot so Run blocks on the semaphore.
	release := make(chan struct{})
	go func() {
		r.semaphore <- struct{}{}
		close(release)
	}()
	<-release

	if _, err := r.Run(ctx, "q"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	<-r.semaphore
}
