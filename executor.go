package xdispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Executor runs asynchronous deliveries. Submissions are fire-and-forget:
// no ordering relative to other deliveries, no result observed by the
// caller. Shutdown stops accepting new work without waiting for in-flight
// tasks; ShutdownNow additionally discards queued work, best-effort.
type Executor interface {
	Execute(fn func())
	Shutdown()
	ShutdownNow()
}

// GoExecutor runs each task on its own goroutine. It is the engine default:
// unbounded, no queue, no back-pressure.
type GoExecutor struct {
	closed atomic.Bool
}

var _ Executor = (*GoExecutor)(nil)

func NewGoExecutor() *GoExecutor { return &GoExecutor{} }

func (e *GoExecutor) Execute(fn func()) {
	if fn == nil || e.closed.Load() {
		return
	}
	go runTask(fn)
}

func (e *GoExecutor) Shutdown() { e.closed.Store(true) }

// ShutdownNow stops accepting new tasks. Already-started goroutines cannot
// be interrupted.
func (e *GoExecutor) ShutdownNow() { e.closed.Store(true) }

// PoolExecutor runs tasks on a fixed set of workers behind a bounded queue.
// Submission is non-blocking: when the queue is full the task is dropped and
// counted, so a slow consumer can never stall the firing path.
type PoolExecutor struct {
	tasks   chan func()
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool
	now     atomic.Bool

	dropped  atomic.Uint64
	executed atomic.Uint64
}

var _ Executor = (*PoolExecutor)(nil)

// NewPoolExecutor creates a pool with the given worker count and queue
// capacity. Non-positive arguments fall back to 4 workers and a 1024 queue.
func NewPoolExecutor(workers, queueSize int) *PoolExecutor {
	if workers < 1 {
		workers = 4
	}
	if queueSize < 1 {
		queueSize = 1024
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &PoolExecutor{
		tasks:   make(chan func(), queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Execute queues a task. Drops (and counts) when closed or the queue is full.
func (p *PoolExecutor) Execute(fn func()) {
	if fn == nil {
		return
	}
	if p.closed.Load() {
		p.dropped.Add(1)
		return
	}

	select {
	case p.tasks <- fn:
	default:
		p.dropped.Add(1)
	}
}

func (p *PoolExecutor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			if p.now.Load() {
				return
			}
			// Drain whatever is already queued, then exit.
			for {
				select {
				case fn := <-p.tasks:
					if fn != nil {
						runTask(fn)
						p.executed.Add(1)
					}
				default:
					return
				}
			}
		case fn := <-p.tasks:
			if fn != nil {
				runTask(fn)
				p.executed.Add(1)
			}
		}
	}
}

// Shutdown stops accepting new tasks. Queued tasks are still drained by the
// workers in the background; the call does not wait for them.
func (p *PoolExecutor) Shutdown() {
	if p.closed.Swap(true) {
		return
	}
	p.cancel()
}

// ShutdownNow stops accepting new tasks and discards queued ones. In-flight
// tasks cannot be interrupted.
func (p *PoolExecutor) ShutdownNow() {
	p.now.Store(true)
	if !p.closed.Swap(true) {
		p.cancel()
	}

	for {
		select {
		case <-p.tasks:
			p.dropped.Add(1)
		default:
			return
		}
	}
}

// Wait blocks until all workers have exited. Useful in tests and orderly
// teardown after Shutdown.
func (p *PoolExecutor) Wait() { p.wg.Wait() }

// ExecutorStats is telemetry about a PoolExecutor.
type ExecutorStats struct {
	Dropped   uint64
	Executed  uint64
	Pending   int
	Workers   int
	QueueSize int
}

// Stats returns current pool statistics.
func (p *PoolExecutor) Stats() ExecutorStats {
	return ExecutorStats{
		Dropped:   p.dropped.Load(),
		Executed:  p.executed.Load(),
		Pending:   len(p.tasks),
		Workers:   p.workers,
		QueueSize: cap(p.tasks),
	}
}

// runTask tolerates task panics so a misbehaving delivery cannot kill a
// worker or an executor goroutine. Delivery-level reporting happens inside
// the task itself.
func runTask(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
