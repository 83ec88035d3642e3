package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolClosed is returned by Run after Close.
	ErrPoolClosed = errors.New("parallel: pool closed")

	// ErrTaskPanicked wraps the value of a task that panicked.
	ErrTaskPanicked = errors.New("parallel: task panicked")
)

// WorkerPool is a fixed set of goroutines that run indexed tasks.
//
// Each worker has its own queue and steals from the others when its queue
// is empty, so a few slow tasks do not hold up the rest of a batch.
//
// A task must not call Run on the pool that runs it: the nested call can
// wait for queue space that only the calling worker would free.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()

	// submit is held for reading while tasks are queued and for writing by
	// Close, so no task is queued after the workers drain and exit.
	submit sync.RWMutex

	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)
	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// steal takes one task from another worker's queue, or returns nil.
func (p *WorkerPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// Run calls fn(ctx, i) for every i in [0, n) on the pool's workers and
// waits for all calls to return.
//
// The first error cancels the context passed to the remaining calls; tasks
// that have not started by then are skipped. Run returns that error, or the
// parent context's error if it was cancelled, or nil. A panicking task is
// reported as an error wrapping ErrTaskPanicked.
func (p *WorkerPool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}

	p.submit.RLock()
	if !p.running.Load() {
		p.submit.RUnlock()
		return ErrPoolClosed
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	fail := func(err error) {
		once.Do(func() {
			first = err
			cancel()
		})
	}

	wg.Add(n)
queue:
	for i := range n {
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := call(ctx, i, fn); err != nil {
				fail(err)
			}
		}
		select {
		case p.workQueues[i%p.workers] <- task:
		case <-ctx.Done():
			wg.Add(i - n)
			break queue
		}
	}
	p.submit.RUnlock()

	wg.Wait()
	if first != nil {
		return first
	}
	return parent.Err()
}

// call runs fn, turning a panic into an error.
func call(ctx context.Context, i int, fn func(context.Context, int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: task %d: %v", ErrTaskPanicked, i, r)
		}
	}()
	return fn(ctx, i)
}

// Close stops accepting work, waits for queued tasks to finish and stops
// the workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.submit.Lock()
	defer p.submit.Unlock()
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the number of queued tasks. The value is a snapshot.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
