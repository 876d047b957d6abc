package reactor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestReactorRunDrainsPostedJobs(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())

	var done atomic.Bool
	go func() {
		_ = r.Run(ctx, 4)
		done.Store(true)
	}()

	var n atomic.Int64
	for i := 0; i < 100; i++ {
		r.Post(func() { n.Add(1) })
	}

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() != 100 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := n.Load(); got != 100 {
		t.Fatalf("expected all 100 jobs to run, got %d", got)
	}

	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for !done.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !done.Load() {
		t.Fatal("expected Run to return after context cancellation")
	}
}

func TestDefaultReturnsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatal("expected Default() to return the same instance")
	}
}

func TestRunTreatsNonPositiveWorkerCountAsOne(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = r.Run(ctx, 0) }()

	var n atomic.Int64
	r.Post(func() { n.Add(1) })

	deadline := time.Now().Add(time.Second)
	for n.Load() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n.Load() != 1 {
		t.Fatal("expected the single job to run with n<1")
	}
}
