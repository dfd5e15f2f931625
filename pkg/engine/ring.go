// Package engine connects the pieces: lock-free event rings, immutable
// mapping snapshots, the real-time processor that dispatches events on
// the audio callback and the main processor that owns the authoritative
// mapping state, feedback and everything that may block.
package engine

import "sync/atomic"

// Ring is a bounded lock-free queue with sequence-stamped cells, safe
// for multiple producers and consumers. When full, Push discards the
// oldest unread element so fresh input survives overload; drops are
// counted, never silent.
type Ring[T any] struct {
	cells   []ringCell[T]
	mask    uint64
	enq     atomic.Uint64
	deq     atomic.Uint64
	dropped atomic.Uint64
}

type ringCell[T any] struct {
	seq atomic.Uint64
	val T
}

// NewRing creates a ring holding at least capacity elements, rounded up
// to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := nextPowerOfTwo(uint64(capacity))
	r := &Ring[T]{
		cells: make([]ringCell[T], size),
		mask:  size - 1,
	}
	for i := range r.cells {
		r.cells[i].seq.Store(uint64(i))
	}
	return r
}

// tryPush enqueues v if there is room.
func (r *Ring[T]) tryPush(v T) bool {
	for {
		pos := r.enq.Load()
		c := &r.cells[pos&r.mask]
		seq := c.seq.Load()
		switch {
		case seq == pos:
			if r.enq.CompareAndSwap(pos, pos+1) {
				c.val = v
				c.seq.Store(pos + 1)
				return true
			}
		case seq < pos:
			return false
		}
		// Lost the race against another producer, retry.
	}
}

// Push enqueues v, discarding the oldest unread element when the ring
// is full. It reports whether nothing was discarded.
func (r *Ring[T]) Push(v T) bool {
	clean := true
	for !r.tryPush(v) {
		if _, ok := r.Pop(); ok {
			r.dropped.Add(1)
			clean = false
		}
	}
	return clean
}

// Pop dequeues the oldest element.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	for {
		pos := r.deq.Load()
		c := &r.cells[pos&r.mask]
		seq := c.seq.Load()
		switch {
		case seq == pos+1:
			if r.deq.CompareAndSwap(pos, pos+1) {
				v := c.val
				c.val = zero
				c.seq.Store(pos + r.mask + 1)
				return v, true
			}
		case seq <= pos:
			return zero, false
		}
	}
}

// Len approximates the number of queued elements.
func (r *Ring[T]) Len() int {
	e := r.enq.Load()
	d := r.deq.Load()
	if e <= d {
		return 0
	}
	n := e - d
	if n > uint64(len(r.cells)) {
		n = uint64(len(r.cells))
	}
	return int(n)
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.cells) }

// Dropped returns how many elements overflow has discarded.
func (r *Ring[T]) Dropped() uint64 { return r.dropped.Load() }

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
