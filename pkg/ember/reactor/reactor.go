// Package reactor provides the process-wide event-loop service that the
// socket and http11 layers are driven by.
//
// The runtime's actual I/O multiplexing is done by the Go scheduler's
// netpoller; what this package coordinates is the fixed-size worker pool
// that drains the shared completion-job queue. socket.Listener posts each
// accepted connection's callback here as a job; a connection's read loop
// and send-queue drain run on their own goroutines. This mirrors the spec's
// "single shared loop driven by N worker threads" model without
// reimplementing epoll in userspace.
package reactor

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Reactor owns the shared job queue and worker pool.
type Reactor struct {
	jobs chan func()
}

// New creates a standalone Reactor. Most callers should use Default
// instead; New exists for tests that want an isolated instance.
func New() *Reactor {
	return &Reactor{jobs: make(chan func(), 1024)}
}

var (
	defaultOnce sync.Once
	defaultInst *Reactor
)

// Default returns the process-wide Reactor, constructing it on first use.
// This is the Go analogue of the spec's "created on first use" singleton
// service() accessor.
func Default() *Reactor {
	defaultOnce.Do(func() {
		defaultInst = New()
	})
	return defaultInst
}

// Post schedules fn to run on some worker goroutine. Handlers posted this
// way must not block; long-running work should be offloaded by the caller
// (the spec treats blocking file I/O as such an offload, out of scope here).
func (r *Reactor) Post(fn func()) {
	r.jobs <- fn
}

// Run launches n workers (n<1 is treated as 1), each draining the shared
// job queue, and blocks the calling goroutine until ctx is cancelled and
// every worker has observed the cancellation and drained its current job.
// This is the Go rendition of "run(n) launches n-1 worker threads and runs
// the loop on the calling thread; returns when every thread has observed
// there is no more work" — here all n workers are launched uniformly
// since there is no privileged "calling thread" in the goroutine model.
func (r *Reactor) Run(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-r.jobs:
					job()
				}
			}
		})
	}
	return g.Wait()
}
