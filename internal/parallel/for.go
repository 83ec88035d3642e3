package parallel

import (
	"context"
	"runtime"
	"sync"
)

// For calls fn(ctx, i) for every i in [0, n) on at most workers goroutines
// and waits for the calls to return. Error and cancellation handling match
// WorkerPool.Run.
//
// For starts its own goroutines, so unlike Run it may be called from a task
// running on a WorkerPool. workers <= 0 means GOMAXPROCS.
func For(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if workers == 1 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := call(ctx, i, fn); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
		next  = make(chan int)
	)
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range next {
				if ctx.Err() != nil {
					continue
				}
				if err := call(ctx, i, fn); err != nil {
					once.Do(func() {
						first = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := range n {
		select {
		case next <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(next)
	wg.Wait()

	if first != nil {
		return first
	}
	return parent.Err()
}
