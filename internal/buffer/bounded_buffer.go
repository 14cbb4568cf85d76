// Package buffer implements the fixed-capacity FIFO of keys shared between
// the pipeline stages. It is a direct port of QueueBuffer<T> from the
// original C++ source (structures.hpp), backed by a slice ring instead of
// std::queue.
//
// A BoundedBuffer is not self-synchronizing: callers supply mutual
// exclusion, exactly as in the source.
package buffer

import "extsort/internal/keys"

// BoundedBuffer is a fixed-capacity FIFO of keys carrying an immutable tag
// used for diagnostics (matches QueueBuffer::idx_ in the source).
type BoundedBuffer[K keys.Unsigned] struct {
	Tag int

	data       []K
	head, size int
}

// New allocates a BoundedBuffer of the given capacity and tag.
func New[K keys.Unsigned](capacity int, tag int) *BoundedBuffer[K] {
	return &BoundedBuffer[K]{
		Tag:  tag,
		data: make([]K, capacity),
	}
}

// Cap returns the buffer's declared capacity.
func (b *BoundedBuffer[K]) Cap() int { return len(b.data) }

// Size returns the number of keys currently held.
func (b *BoundedBuffer[K]) Size() int { return b.size }

// Empty reports whether the buffer holds no keys.
func (b *BoundedBuffer[K]) Empty() bool { return b.size == 0 }

// Full reports whether the buffer is at capacity.
func (b *BoundedBuffer[K]) Full() bool { return b.size == len(b.data) }

// Push appends k to the back of the buffer. It returns false if the buffer
// is already full, matching QueueBuffer::push's bool-returning contract.
func (b *BoundedBuffer[K]) Push(k K) bool {
	if b.Full() {
		return false
	}
	tail := (b.head + b.size) % len(b.data)
	b.data[tail] = k
	b.size++
	return true
}

// Take removes and returns the key at the front. ok is false if the buffer
// is empty, matching QueueBuffer::getNext(T&).
func (b *BoundedBuffer[K]) Take() (k K, ok bool) {
	if b.Empty() {
		return k, false
	}
	k = b.data[b.head]
	b.head = (b.head + 1) % len(b.data)
	b.size--
	return k, true
}

// PeekNext returns the front key without removing it.
func (b *BoundedBuffer[K]) PeekNext() (k K, ok bool) {
	if b.Empty() {
		return k, false
	}
	return b.data[b.head], true
}

// PeekBack returns the last-pushed key without removing it, matching
// QueueBuffer::peekBack. The stage-2 feeders do not call it.
func (b *BoundedBuffer[K]) PeekBack(k *K) bool {
	if b.Empty() {
		return false
	}
	idx := (b.head + b.size - 1) % len(b.data)
	*k = b.data[idx]
	return true
}

// Clear empties the buffer without releasing its backing array.
func (b *BoundedBuffer[K]) Clear() {
	b.head, b.size = 0, 0
}

// Raw returns the buffer's live keys as a contiguous slice for in-place
// sorting or bulk serialization. Valid only while the buffer has been
// exclusively filled by Push since its last Clear (head == 0) — stage 1's
// read/sort/write handoff never interleaves Take with Push on the same
// buffer, so this always holds there.
func (b *BoundedBuffer[K]) Raw() []K {
	if b.head != 0 {
		panic("buffer: Raw called on a buffer with a non-zero head")
	}
	return b.data[:b.size]
}
