// Package spsc provides a bounded single-producer/single-consumer queue that
// never blocks and never allocates after construction.
package spsc

import "sync/atomic"

// Ring is a fixed-capacity lock-free FIFO. Exactly one goroutine may call
// Push and exactly one (possibly different) goroutine may call Pop.
type Ring[T any] struct {
	buf  []T
	mask uint64
	cap  uint64

	// head is owned by the consumer, tail by the producer. Each side only
	// reads the other's index atomically.
	head atomic.Uint64
	_    [56]byte
	tail atomic.Uint64
}

// New creates a ring holding at most capacity items. Capacity below one is
// raised to one.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
		cap:  uint64(capacity),
	}
}

// Push appends v. It returns false when the ring already holds Cap items.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= r.cap {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest item. ok is false when the ring is empty.
func (r *Ring[T]) Pop() (v T, ok bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return v, false
	}
	slot := &r.buf[head&r.mask]
	v = *slot
	var zero T
	*slot = zero
	r.head.Store(head + 1)
	return v, true
}

// Len reports the number of queued items. The value is a snapshot and may be
// stale by the time the caller uses it.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the configured capacity.
func (r *Ring[T]) Cap() int {
	return int(r.cap)
}
