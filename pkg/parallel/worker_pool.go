// Package parallel provides the worker pool that fans out independent,
// index-addressed tasks (gap pieces, segments, parent searches).
package parallel

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/dd0wney/cluso-gridmap/pkg/logging"
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
	logger    logging.Logger
}

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// ErrPoolClosed is returned by ForEach on a closed pool.
var ErrPoolClosed = fmt.Errorf("worker pool closed")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewWorkerPool creates a new worker pool with specified number of workers.
// Zero or negative means GOMAXPROCS.
func NewWorkerPool(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Prevent overflow in buffer size calculation
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2), // Buffer for 2x workers
		logger:    logger,
	}

	pool.start()
	return pool, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	if wp == nil {
		return 1
	}
	return wp.workers
}

// start initializes the worker goroutines
func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		// Recover from panics in tasks to prevent worker crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error("worker panic recovered", logging.Any("panic", fmt.Sprint(r)))
				}
			}()
			task()
		}()
	}
}

// Submit adds a task to the worker pool
// Returns false if the pool is closed, true if task was submitted
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}

	wp.taskQueue <- task
	return true
}

// ForEach runs fn(i) for every i in [0, n) and waits for all of them. Each
// call must write only to its own slot. A panicking task is reported as an
// error after the others finish. A nil pool runs the calls in order on the
// calling goroutine.
func (wp *WorkerPool) ForEach(n int, fn func(i int)) error {
	if n <= 0 {
		return nil
	}
	if wp == nil {
		return runSequential(n, fn)
	}

	var (
		batch    sync.WaitGroup
		panicMu  sync.Mutex
		firstErr error
	)
	for i := 0; i < n; i++ {
		i := i
		batch.Add(1)
		ok := wp.Submit(func() {
			defer batch.Done()
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("task %d panicked: %v", i, r)
					}
					panicMu.Unlock()
				}
			}()
			fn(i)
		})
		if !ok {
			batch.Done()
			batch.Wait()
			return ErrPoolClosed
		}
	}
	batch.Wait()
	return firstErr
}

func runSequential(n int, fn func(i int)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	for i := 0; i < n; i++ {
		fn(i)
	}
	return nil
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	if wp == nil {
		return
	}
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
