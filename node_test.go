package bptree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryogrid/bptree-go-for-embedding/storage/page"
)

func key(b byte) []byte { return []byte{b, 0, 0, 0} }

func TestLeafNodeInsertFindRemove(t *testing.T) {
	p := page.New(page.ID(1))
	lf := InitLeaf(p, 1, InvalidPageID, 4, 4)

	lf.InsertKeyValueAt(0, key(5), RID{PageID: 5, Slot: 0})
	lf.InsertKeyValueAt(0, key(3), RID{PageID: 3, Slot: 0})
	lf.InsertKeyValueAt(1, key(4), RID{PageID: 4, Slot: 0})

	require.Equal(t, 3, lf.Size())
	assert.True(t, bytes.Equal(key(3), lf.KeyAt(0)))
	assert.True(t, bytes.Equal(key(4), lf.KeyAt(1)))
	assert.True(t, bytes.Equal(key(5), lf.KeyAt(2)))

	idx, exact := lf.FindKeyIndex(key(4), bytes.Compare)
	assert.True(t, exact)
	assert.Equal(t, 1, idx)

	idx, exact = lf.FindKeyIndex(key(10), bytes.Compare)
	assert.False(t, exact)
	assert.Equal(t, 3, idx)

	lf.RemoveKeyValueAt(1)
	require.Equal(t, 2, lf.Size())
	assert.True(t, bytes.Equal(key(5), lf.KeyAt(1)))
}

func TestLeafNodeNextPageID(t *testing.T) {
	p := page.New(page.ID(1))
	lf := InitLeaf(p, 1, InvalidPageID, 4, 4)
	assert.Equal(t, InvalidPageID, lf.NextPageID())
	lf.SetNextPageID(PageID(9))
	assert.Equal(t, PageID(9), lf.NextPageID())
}

func TestInternalNodeFindKeyIndexDescendsCorrectly(t *testing.T) {
	p := page.New(page.ID(1))
	in := InitInternal(p, 1, InvalidPageID, 5, 4)

	zero := key(0)
	in.InsertKeyValueAt(0, zero, PageID(10))  // leftmost child, key unused
	in.InsertKeyValueAt(1, key(5), PageID(20)) // keys >= 5 go right
	in.InsertKeyValueAt(2, key(9), PageID(30)) // keys >= 9 go right

	idx, _ := in.FindKeyIndex(key(2), bytes.Compare)
	assert.Equal(t, 0, idx) // < 5: leftmost
	idx, _ = in.FindKeyIndex(key(5), bytes.Compare)
	assert.Equal(t, 1, idx) // exact match on separator
	idx, _ = in.FindKeyIndex(key(7), bytes.Compare)
	assert.Equal(t, 1, idx) // between 5 and 9
	idx, _ = in.FindKeyIndex(key(50), bytes.Compare)
	assert.Equal(t, 2, idx) // beyond last separator
}

func TestInternalNodeChildIndex(t *testing.T) {
	p := page.New(page.ID(1))
	in := InitInternal(p, 1, InvalidPageID, 5, 4)
	in.InsertKeyValueAt(0, key(0), PageID(10))
	in.InsertKeyValueAt(1, key(5), PageID(20))

	assert.Equal(t, 0, in.ChildIndex(PageID(10)))
	assert.Equal(t, 1, in.ChildIndex(PageID(20)))
	assert.Equal(t, -1, in.ChildIndex(PageID(99)))
}

func TestGetMinSize(t *testing.T) {
	p1 := page.New(page.ID(1))
	lf := InitLeaf(p1, 1, InvalidPageID, 4, 4)
	assert.Equal(t, 2, lf.GetMinSize()) // floor(4/2)

	p2 := page.New(page.ID(2))
	in := InitInternal(p2, 2, InvalidPageID, 5, 4)
	assert.Equal(t, 3, in.GetMinSize()) // ceil((5+1)/2)
}

func TestMaxFitHelpers(t *testing.T) {
	assert.True(t, maxLeafFit(4) > 0)
	assert.True(t, maxInternalFit(4) > 0)
}
