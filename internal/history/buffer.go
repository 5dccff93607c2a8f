// Package history provides a caller-owned undo/redo buffer.
package history

// DefaultCapacity bounds the undo stack when no capacity is given
const DefaultCapacity = 50

// Buffer tracks a current state with bounded undo and redo stacks. It holds
// whatever the caller stores in it and nothing else; it is not safe for
// concurrent use.
type Buffer[T any] struct {
	capacity int
	current  T
	undo     []T
	redo     []T
}

// New creates a buffer starting at initial. capacity <= 0 uses DefaultCapacity.
func New[T any](initial T, capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{capacity: capacity, current: initial}
}

// Current returns the current state.
func (b *Buffer[T]) Current() T {
	return b.current
}

// Push records next as the current state. The redo stack is cleared and the
// oldest undo entry is dropped once capacity is reached.
func (b *Buffer[T]) Push(next T) {
	b.undo = append(b.undo, b.current)
	if len(b.undo) > b.capacity {
		b.undo = append(b.undo[:0:0], b.undo[len(b.undo)-b.capacity:]...)
	}
	b.current = next
	b.redo = b.redo[:0]
}

// Undo steps back one state. It reports false when there is nothing to undo.
func (b *Buffer[T]) Undo() (T, bool) {
	if len(b.undo) == 0 {
		return b.current, false
	}
	prev := b.undo[len(b.undo)-1]
	b.undo = b.undo[:len(b.undo)-1]
	b.redo = append(b.redo, b.current)
	b.current = prev
	return prev, true
}

// Redo re-applies the last undone state. It reports false when there is nothing to redo.
func (b *Buffer[T]) Redo() (T, bool) {
	if len(b.redo) == 0 {
		return b.current, false
	}
	next := b.redo[len(b.redo)-1]
	b.redo = b.redo[:len(b.redo)-1]
	b.undo = append(b.undo, b.current)
	b.current = next
	return next, true
}

// CanUndo reports whether Undo would succeed.
func (b *Buffer[T]) CanUndo() bool { return len(b.undo) > 0 }

// CanRedo reports whether Redo would succeed.
func (b *Buffer[T]) CanRedo() bool { return len(b.redo) > 0 }

// Len returns the number of undoable steps.
func (b *Buffer[T]) Len() int { return len(b.undo) }
