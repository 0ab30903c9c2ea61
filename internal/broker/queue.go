package broker

import "time"

// MaxQueueDepth is the hard upper bound on any bounded queue in the
// framework.
const MaxQueueDepth = 255

// BlockingQueue is a bounded single-producer/single-consumer queue with a
// counting semaphore for timed waits. A Go channel already
// is a counting semaphore whose length equals the number of buffered
// items, so BlockingQueue is a thin, typed wrapper around one: len(ch)
// and cap(ch) give queue_len and depth for free, and the invariant "the
// internal counting semaphore's value equals the number of items
// currently enqueued" holds by construction.
type BlockingQueue[T any] struct {
	ch chan T
}

// NewBlockingQueue creates a queue with room for depth items. depth must
// be in (0, MaxQueueDepth].
func NewBlockingQueue[T any](depth int) *BlockingQueue[T] {
	if depth <= 0 || depth > MaxQueueDepth {
		panic("broker: queue depth out of range")
	}
	return &BlockingQueue[T]{ch: make(chan T, depth)}
}

// Push enqueues item without blocking. It returns false if the queue is
// full.
func (q *BlockingQueue[T]) Push(item T) bool {
	select {
	case q.ch <- item:
		return true
	default:
		return false
	}
}

// PopNonBlocking dequeues the head item if one is available, without
// blocking.
func (q *BlockingQueue[T]) PopNonBlocking() (item T, ok bool) {
	select {
	case item = <-q.ch:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// PopWait dequeues the head item, blocking up to timeout for one to
// arrive if the queue is currently empty. A non-positive timeout behaves like PopNonBlocking.
func (q *BlockingQueue[T]) PopWait(timeout time.Duration) (item T, ok bool) {
	if timeout <= 0 {
		return q.PopNonBlocking()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case item = <-q.ch:
		return item, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len returns the number of items currently enqueued.
func (q *BlockingQueue[T]) Len() int { return len(q.ch) }

// Cap returns the queue's fixed depth.
func (q *BlockingQueue[T]) Cap() int { return cap(q.ch) }
