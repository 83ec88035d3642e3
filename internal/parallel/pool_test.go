package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

// =============================================================================
// Run Tests
// =============================================================================

func TestWorkerPool_Run(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const n = 100
	seen := make([]atomic.Int32, n)
	err := pool.Run(context.Background(), n, func(_ context.Context, i int) error {
		seen[i].Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Errorf("task %d ran %d times", i, got)
		}
	}
}

func TestWorkerPool_RunEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	err := pool.Run(context.Background(), 0, func(context.Context, int) error {
		called = true
		return nil
	})
	if err != nil || called {
		t.Errorf("Run(0) = %v, called = %v", err, called)
	}
}

func TestWorkerPool_RunMoreTasksThanQueue(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	var count atomic.Int64
	err := pool.Run(context.Background(), 1000, func(context.Context, int) error {
		count.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count.Load() != 1000 {
		t.Errorf("count = %d, want 1000", count.Load())
	}
}

func TestWorkerPool_RunError(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	errBoom := errors.New("boom")
	err := pool.Run(context.Background(), 50, func(ctx context.Context, i int) error {
		if i == 7 {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Run error = %v, want %v", err, errBoom)
	}
}

func TestWorkerPool_RunErrorSkipsRemaining(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	errBoom := errors.New("boom")
	var ran atomic.Int64
	err := pool.Run(context.Background(), 10, func(ctx context.Context, i int) error {
		ran.Add(1)
		if i == 0 {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Run error = %v", err)
	}
	if ran.Load() != 1 {
		t.Errorf("%d tasks ran, want 1", ran.Load())
	}
}

func TestWorkerPool_RunPanic(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	err := pool.Run(context.Background(), 4, func(_ context.Context, i int) error {
		if i == 2 {
			panic("bad task")
		}
		return nil
	})
	if !errors.Is(err, ErrTaskPanicked) {
		t.Errorf("Run error = %v, want ErrTaskPanicked", err)
	}

	// The worker survives the panic.
	if err := pool.Run(context.Background(), 4, func(context.Context, int) error { return nil }); err != nil {
		t.Errorf("Run after panic: %v", err)
	}
}

func TestWorkerPool_RunCancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int64
	err := pool.Run(ctx, 100, func(context.Context, int) error {
		ran.Add(1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if ran.Load() != 0 {
		t.Errorf("%d tasks ran after cancellation", ran.Load())
	}
}

func TestWorkerPool_RunConcurrentCallers(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	var total atomic.Int64
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Run(context.Background(), 25, func(context.Context, int) error {
				total.Add(1)
				return nil
			})
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		}()
	}
	wg.Wait()
	if total.Load() != 200 {
		t.Errorf("total = %d, want 200", total.Load())
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_Close(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
	pool.Close() // second call is a no-op

	err := pool.Run(context.Background(), 1, func(context.Context, int) error { return nil })
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Run after Close = %v, want ErrPoolClosed", err)
	}
	if pool.QueuedWork() != 0 {
		t.Errorf("QueuedWork() = %d after Close", pool.QueuedWork())
	}
}

// =============================================================================
// For Tests
// =============================================================================

func TestFor(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		out := make([]int, 20)
		err := For(context.Background(), len(out), workers, func(_ context.Context, i int) error {
			out[i] = i * i
			return nil
		})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		for i, v := range out {
			if v != i*i {
				t.Errorf("workers=%d: out[%d] = %d", workers, i, v)
			}
		}
	}
}

func TestFor_Error(t *testing.T) {
	errBoom := errors.New("boom")
	for _, workers := range []int{1, 4} {
		err := For(context.Background(), 10, workers, func(_ context.Context, i int) error {
			if i == 3 {
				return errBoom
			}
			return nil
		})
		if !errors.Is(err, errBoom) {
			t.Errorf("workers=%d: err = %v", workers, err)
		}
	}
}

func TestFor_Panic(t *testing.T) {
	err := For(context.Background(), 3, 2, func(context.Context, int) error {
		panic("bad page")
	})
	if !errors.Is(err, ErrTaskPanicked) {
		t.Errorf("err = %v, want ErrTaskPanicked", err)
	}
}

func TestFor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 4} {
		err := For(ctx, 10, workers, func(context.Context, int) error {
			t.Error("task ran after cancellation")
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: err = %v", workers, err)
		}
	}
}

func TestFor_InsidePool(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	var total atomic.Int64
	err := pool.Run(context.Background(), 4, func(ctx context.Context, _ int) error {
		return For(ctx, 8, 4, func(context.Context, int) error {
			total.Add(1)
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if total.Load() != 32 {
		t.Errorf("total = %d, want 32", total.Load())
	}
}
