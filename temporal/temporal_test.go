package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intEqual(a, b int) bool { return a == b }

func TestUndoRedo(t *testing.T) {
	h := New(0, WithEqual(intEqual))

	require.True(t, h.Record(1))
	require.True(t, h.Record(2))
	assert.Equal(t, 2, h.Present())
	assert.Equal(t, 2, h.PastLen())

	require.True(t, h.Undo())
	assert.Equal(t, 1, h.Present())
	assert.True(t, h.CanRedo())

	require.True(t, h.Undo())
	assert.Equal(t, 0, h.Present())
	assert.False(t, h.CanUndo())

	require.True(t, h.Redo())
	assert.Equal(t, 1, h.Present())
	require.True(t, h.Redo())
	assert.Equal(t, 2, h.Present())
	assert.False(t, h.CanRedo())
}

func TestBoundaryNoOps(t *testing.T) {
	h := New("seed")

	assert.False(t, h.Undo())
	assert.False(t, h.Redo())
	assert.Equal(t, "seed", h.Present())
	assert.Equal(t, 0, h.PastLen())
	assert.Equal(t, 0, h.FutureLen())
}

func TestRecordClearsFuture(t *testing.T) {
	h := New(0)
	h.Record(1)
	h.Record(2)
	h.Undo()
	require.True(t, h.CanRedo())

	h.Record(3)
	assert.False(t, h.CanRedo())
	assert.Equal(t, 0, h.FutureLen())
	assert.Equal(t, []int{0, 1}, h.Past())
}

func TestRecordSkipsEqualValues(t *testing.T) {
	h := New(5, WithEqual(intEqual))

	assert.False(t, h.Record(5))
	assert.Equal(t, 0, h.PastLen())

	// without an equality func every record counts
	h2 := New(5)
	assert.True(t, h2.Record(5))
	assert.Equal(t, 1, h2.PastLen())
}

func TestLimitDropsOldest(t *testing.T) {
	const limit = 10
	h := New(0, WithLimit[int](limit))

	for i := 1; i <= limit+5; i++ {
		h.Record(i)
	}
	assert.Equal(t, limit, h.PastLen())
	past := h.Past()
	assert.Equal(t, 5, past[0])
	assert.Equal(t, limit+4, past[len(past)-1])

	for h.Undo() {
	}
	assert.Equal(t, 5, h.Present())
}

func TestWithLimitIgnoresNonPositive(t *testing.T) {
	h := New(0, WithLimit[int](0))
	assert.Equal(t, DefaultLimit, h.Limit())
}

func TestReset(t *testing.T) {
	h := New(0)
	h.Record(1)
	h.Record(2)
	h.Undo()

	h.Reset(42)
	assert.Equal(t, 42, h.Present())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}
