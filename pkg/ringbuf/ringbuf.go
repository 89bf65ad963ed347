// Package ringbuf implements a generic bounded append-only buffer.
//
// When the buffer is full the oldest entry is overwritten. Items returns
// entries oldest-first. All operations are O(1) except Items, which is O(n).
package ringbuf

import "sync"

// Buffer is a fixed-capacity ring buffer. Safe for concurrent use.
type Buffer[T any] struct {
	mu    sync.Mutex
	items []T
	start int // index of the oldest entry
	count int
}

// New creates a buffer with the given capacity.
// Panics if capacity < 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		panic("ringbuf: capacity must be >= 1")
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Append adds an item, evicting the oldest entry when full.
// Returns true if an eviction occurred.
func (b *Buffer[T]) Append(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < len(b.items) {
		b.items[(b.start+b.count)%len(b.items)] = item
		b.count++
		return false
	}
	b.items[b.start] = item
	b.start = (b.start + 1) % len(b.items)
	return true
}

// Items returns a copy of the buffered entries, oldest first.
func (b *Buffer[T]) Items() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}
