package graph

import (
	"testing"

	"github.com/catgraph/catquery/internal/testutil"
)

func TestBuffersAppendAndLen(t *testing.T) {
	b := NewBuffers(10)

	b.Append(0, 1)
	b.Append(0, 2)
	b.AppendAll(1, []int32{3, 4, 5})

	testutil.AssertEqual(t, 2, b.Len(0))
	testutil.AssertEqual(t, 3, b.Len(1))

	slotA := b.Slot(0)
	if len(slotA) != 2 || slotA[0] != 1 || slotA[1] != 2 {
		t.Errorf("Slot(0) = %v, want [1 2]", slotA)
	}
}

func TestBuffersResetCountsKeepsCapacity(t *testing.T) {
	b := NewBuffers(10)
	b.AppendAll(0, []int32{1, 2, 3})

	b.ResetCounts()
	testutil.AssertEqual(t, 0, b.Len(0))

	// Appending again should reuse the existing backing array rather
	// than reallocate; we can't observe capacity directly through the
	// public API, but the values must come back clean.
	b.Append(0, 9)
	if got := b.Slot(0); len(got) != 1 || got[0] != 9 {
		t.Errorf("Slot(0) after reset+append = %v, want [9]", got)
	}
}

func TestBuffersMaskVisited(t *testing.T) {
	b := NewBuffers(5)

	testutil.AssertFalse(t, b.Visited(2))
	b.Mark(2)
	testutil.AssertTrue(t, b.Visited(2))
	testutil.AssertFalse(t, b.Visited(3))

	b.ClearMask()
	testutil.AssertFalse(t, b.Visited(2))
}
