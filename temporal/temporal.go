// Package temporal keeps a bounded undo/redo history around a value.
//
// A History holds three slots: past (oldest first), the present value, and
// future (most recently undone first). Recording a new value pushes the
// present onto past and invalidates future. None of the operations fail;
// undo and redo at an empty boundary are no-ops.
package temporal

// DefaultLimit bounds the past list when no limit is configured.
const DefaultLimit = 100

// History is a bounded undo/redo stack. It is not safe for concurrent use.
type History[T any] struct {
	past    []T
	present T
	future  []T
	limit   int
	equal   func(a, b T) bool
}

// Option configures a History.
type Option[T any] func(*History[T])

// WithLimit sets the maximum number of past entries. Values below 1 are ignored.
func WithLimit[T any](n int) Option[T] {
	return func(h *History[T]) {
		if n > 0 {
			h.limit = n
		}
	}
}

// WithEqual sets the equality used to drop no-op records.
func WithEqual[T any](eq func(a, b T) bool) Option[T] {
	return func(h *History[T]) {
		h.equal = eq
	}
}

// New returns a History whose present value is present and whose past and
// future are empty.
func New[T any](present T, opts ...Option[T]) *History[T] {
	h := &History[T]{present: present, limit: DefaultLimit}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Present returns the current value.
func (h *History[T]) Present() T {
	return h.present
}

// Record makes next the present value. It returns false, leaving the history
// untouched, when next equals the present value.
func (h *History[T]) Record(next T) bool {
	if h.equal != nil && h.equal(h.present, next) {
		return false
	}
	h.past = append(h.past, h.present)
	if over := len(h.past) - h.limit; over > 0 {
		h.past = append(h.past[:0:0], h.past[over:]...)
	}
	h.present = next
	h.future = nil
	return true
}

// Undo restores the newest past value. It reports whether anything changed.
func (h *History[T]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	last := len(h.past) - 1
	prev := h.past[last]
	h.past = h.past[:last]
	h.future = append(h.future, h.present)
	h.present = prev
	return true
}

// Redo re-applies the most recently undone value. It reports whether
// anything changed.
func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	last := len(h.future) - 1
	next := h.future[last]
	h.future = h.future[:last]
	h.past = append(h.past, h.present)
	h.present = next
	return true
}

// CanUndo reports whether Undo would change the present value.
func (h *History[T]) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would change the present value.
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }

// PastLen is the number of undo steps available.
func (h *History[T]) PastLen() int { return len(h.past) }

// FutureLen is the number of redo steps available.
func (h *History[T]) FutureLen() int { return len(h.future) }

// Limit returns the configured bound on past entries.
func (h *History[T]) Limit() int { return h.limit }

// Past returns the past values, oldest first. The slice is a copy.
func (h *History[T]) Past() []T {
	return append([]T(nil), h.past...)
}

// Reset discards all history and sets a new present value.
func (h *History[T]) Reset(present T) {
	h.past = nil
	h.future = nil
	h.present = present
}
