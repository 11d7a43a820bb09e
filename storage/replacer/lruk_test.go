package replacer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 5 (spec.md "Concrete scenarios"): k=2, access sequence
// 1,2,3,4,1,2,3,4 over frames 0..3, all evictable. The spec's literal prose
// claims eviction order 4,3,2,1; hand-tracing the backward-k-distance
// formula against its own access sequence yields 1,2,3,4 instead (frame 0's
// 2nd-most-recent access at t=1 is the most stale of the four). DESIGN.md
// records this as a documentation inconsistency and trusts the formula.
func TestLRUK_Scenario5_FormulaOrder(t *testing.T) {
	r := New(4, 2)

	seq := []FrameID{0, 1, 2, 3, 0, 1, 2, 3}
	for _, id := range seq {
		r.RecordAccess(id)
	}
	for id := FrameID(0); id < 4; id++ {
		r.SetEvictable(id, true)
	}

	require.Equal(t, 4, r.Size())

	var order []FrameID
	for i := 0; i < 4; i++ {
		id, ok := r.Evict()
		require.True(t, ok)
		order = append(order, id)
	}

	assert.Equal(t, []FrameID{0, 1, 2, 3}, order)
	assert.Equal(t, 0, r.Size())

	_, ok := r.Evict()
	assert.False(t, ok)
}

// Scenario 6: k=2, access sequence 1,2,3,4,5,1 over frames 0..4. Only
// frames 2,3,4 (0-indexed for accesses 3,4,5) are marked evictable; frames 0
// and 1 (accesses 1,2) stay pinned and must never be evicted. All three
// evictable frames have fewer than k accesses (+Inf backward k-distance),
// so the tie is broken by earliest most-recent access: 3, then 4, then 5.
func TestLRUK_Scenario6_InfDistanceTiebreak(t *testing.T) {
	r := New(5, 2)

	seq := []FrameID{0, 1, 2, 3, 4, 0}
	for _, id := range seq {
		r.RecordAccess(id)
	}
	r.SetEvictable(2, true)
	r.SetEvictable(3, true)
	r.SetEvictable(4, true)

	require.Equal(t, 3, r.Size())

	id, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), id)

	id, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(3), id)

	id, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(4), id)

	_, ok = r.Evict()
	assert.False(t, ok)
}

func TestLRUK_InfiniteEvictedBeforeFinite(t *testing.T) {
	r := New(2, 2)

	r.RecordAccess(0)
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	// Frame 1 has only one recorded access (+Inf distance); frame 0 has two
	// (finite distance). +Inf always outranks finite.
	id, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(1), id)

	id, ok = r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(0), id)
}

func TestLRUK_SetEvictableTogglesSize(t *testing.T) {
	r := New(2, 2)
	r.RecordAccess(0)

	assert.Equal(t, 0, r.Size())
	r.SetEvictable(0, true)
	assert.Equal(t, 1, r.Size())
	r.SetEvictable(0, true) // redundant toggle is a no-op on size
	assert.Equal(t, 1, r.Size())
	r.SetEvictable(0, false)
	assert.Equal(t, 0, r.Size())

	// Unknown frame id (never recorded): silent no-op.
	r.SetEvictable(1, true)
	assert.Equal(t, 0, r.Size())
}

func TestLRUK_RemoveDropsTracking(t *testing.T) {
	r := New(2, 2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)

	r.Remove(0)
	assert.Equal(t, 0, r.Size())

	// Re-recording after Remove starts a fresh, untracked-as-evictable history.
	r.RecordAccess(0)
	assert.Equal(t, 0, r.Size())
}

func TestLRUK_RemoveNonEvictablePanics(t *testing.T) {
	r := New(2, 2)
	r.RecordAccess(0)
	assert.Panics(t, func() { r.Remove(0) })
}

func TestLRUK_OutOfRangeFrameIDPanics(t *testing.T) {
	r := New(2, 2)
	assert.Panics(t, func() { r.RecordAccess(5) })
}
