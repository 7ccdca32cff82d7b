package device

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue is a fixed pool of workers executing workgroups.
type Queue struct {
	workers  int
	workCh   chan func()
	wg       sync.WaitGroup
	closed   atomic.Bool
	submitMu sync.RWMutex

	dispatches atomic.Int64
	groups     atomic.Int64
}

func newQueue(workers int) *Queue {
	q := &Queue{
		workers: workers,
		workCh:  make(chan func(), workers*2),
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for fn := range q.workCh {
		fn()
	}
}

// Workers returns the queue width.
func (q *Queue) Workers() int { return q.workers }

// Kernel processes the item range [lo, hi).
type Kernel func(lo, hi int)

// Dispatch runs kernel over items [0, n) in workgroups of groupSize and
// blocks until all of them have completed.
//
// ctx is only consulted while workgroups are being enqueued. If it is
// cancelled part-way, already enqueued workgroups still run to completion
// before Dispatch returns the context error.
func (q *Queue) Dispatch(ctx context.Context, n, groupSize int, kernel Kernel) error {
	if n <= 0 {
		return nil
	}
	if groupSize <= 0 {
		groupSize = n
	}

	q.submitMu.RLock()
	defer q.submitMu.RUnlock()
	if q.closed.Load() {
		return ErrClosed
	}

	q.dispatches.Add(1)

	var done sync.WaitGroup
	var err error
	for lo := 0; lo < n; lo += groupSize {
		hi := min(lo+groupSize, n)
		done.Add(1)
		task := func() {
			defer done.Done()
			kernel(lo, hi)
		}
		select {
		case q.workCh <- task:
			q.groups.Add(1)
		case <-ctx.Done():
			done.Done()
			err = ctx.Err()
		}
		if err != nil {
			break
		}
	}

	done.Wait()
	return err
}

// Stats returns the number of dispatches and workgroups executed.
func (q *Queue) Stats() (dispatches, groups int64) {
	return q.dispatches.Load(), q.groups.Load()
}

func (q *Queue) close() {
	if !q.closed.CompareAndSwap(false, true) {
		return
	}
	// Waits for in-flight Dispatch calls to drain.
	q.submitMu.Lock()
	close(q.workCh)
	q.submitMu.Unlock()
	q.wg.Wait()
}
