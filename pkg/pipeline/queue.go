package pipeline

import (
	"context"
	"sync"
)

// ErrQueueClosed is returned if a Push is attempted after Close.
var ErrQueueClosed = &QueueError{"queue closed"}

// QueueError provides a simple typed error for queue operations.
type QueueError struct{ msg string }

func (e *QueueError) Error() string { return e.msg }

// fifo is an unbounded ordered queue with a single sequential consumer.
// Push never blocks the producer; Pop blocks until an item, close or
// cancellation. Ordering is submission order, always.
type fifo[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func newFIFO[T any]() *fifo[T] {
	q := &fifo[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item at the tail. Returns ErrQueueClosed after Close.
func (q *fifo[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return nil
}

// Pop removes and returns the head item. The second result is false when the
// queue is closed and drained, or ctx is done.
func (q *fifo[T]) Pop(ctx context.Context) (T, bool) {
	// Wake the cond wait when ctx is canceled.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed || ctx.Err() != nil {
			var zero T
			return zero, false
		}
		q.cond.Wait()
	}
	if ctx.Err() != nil {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len reports the current queue depth.
func (q *fifo[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting new items. Pending items are discarded; a blocked
// Pop returns immediately.
func (q *fifo[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
	q.mu.Unlock()
}
