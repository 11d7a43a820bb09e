package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryogrid/bptree-go-for-embedding/storage/disk"
	"github.com/ryogrid/bptree-go-for-embedding/storage/page"
)

func newTestManager(t *testing.T, poolSize int) *Manager {
	t.Helper()
	d := disk.NewWithFile(disk.NewMemFile(), 0)
	return New(d, poolSize, 2)
}

func TestNewReservesHeaderPage(t *testing.T) {
	m := newTestManager(t, 5)
	p, err := m.New()
	require.NoError(t, err)
	assert.NotEqual(t, HeaderPageID, p.ID())
	require.NoError(t, m.Unpin(p.ID(), true))
}

func TestFetchHeaderReadsZeroedPage(t *testing.T) {
	m := newTestManager(t, 5)
	hp, err := m.FetchHeader()
	require.NoError(t, err)
	assert.Equal(t, HeaderPageID, hp.ID())
	for _, b := range hp.Data() {
		assert.Zero(t, b)
	}
	require.NoError(t, m.Unpin(hp.ID(), false))
}

func TestFetchRoundTripsWrittenData(t *testing.T) {
	m := newTestManager(t, 5)
	p, err := m.New()
	require.NoError(t, err)
	p.Data()[0] = 0xAB
	id := p.ID()
	require.NoError(t, m.Unpin(id, true))

	got, err := m.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), got.Data()[0])
	require.NoError(t, m.Unpin(id, false))
}

func TestEvictionFlushesDirtyVictim(t *testing.T) {
	m := newTestManager(t, 2) // 2 frames: header takes one slot's page id but not a frame until fetched

	p1, err := m.New()
	require.NoError(t, err)
	p1.Data()[0] = 1
	require.NoError(t, m.Unpin(p1.ID(), true))

	p2, err := m.New()
	require.NoError(t, err)
	p2.Data()[0] = 2
	require.NoError(t, m.Unpin(p2.ID(), true))

	// Pool now holds exactly 2 resident pages (p1, p2), both evictable. A
	// third New() must evict one of them, flushing it to disk first.
	p3, err := m.New()
	require.NoError(t, err)
	require.NoError(t, m.Unpin(p3.ID(), true))

	// Whichever of p1/p2 was evicted must still read back correctly.
	got1, err := m.Fetch(p1.ID())
	require.NoError(t, err)
	assert.Equal(t, byte(1), got1.Data()[0])
	require.NoError(t, m.Unpin(p1.ID(), false))
}

func TestNewFailsWhenAllFramesPinnedAndNoneEvictable(t *testing.T) {
	m := newTestManager(t, 1)
	p, err := m.New()
	require.NoError(t, err)
	// p stays pinned (never Unpin'd): no frame, and nothing evictable.
	_, err = m.New()
	assert.ErrorIs(t, err, ErrNoFreeFrame)
	require.NoError(t, m.Unpin(p.ID(), false))
}

func TestUnpinUnknownPageErrors(t *testing.T) {
	m := newTestManager(t, 2)
	err := m.Unpin(page.ID(999), false)
	assert.ErrorIs(t, err, ErrPageNotResident)
}

func TestDeleteFailsWhilePinned(t *testing.T) {
	m := newTestManager(t, 2)
	p, err := m.New()
	require.NoError(t, err)
	assert.Error(t, m.Delete(p.ID()))
	require.NoError(t, m.Unpin(p.ID(), false))
	assert.NoError(t, m.Delete(p.ID()))
}

func TestDeleteUnknownPageIsNoop(t *testing.T) {
	m := newTestManager(t, 2)
	assert.NoError(t, m.Delete(page.ID(123456)))
}

func TestFlushAllPersistsEveryDirtyFrame(t *testing.T) {
	m := newTestManager(t, 4)
	var ids []page.ID
	for i := 0; i < 3; i++ {
		p, err := m.New()
		require.NoError(t, err)
		p.Data()[0] = byte(i + 1)
		ids = append(ids, p.ID())
		require.NoError(t, m.Unpin(p.ID(), true))
	}

	require.NoError(t, m.FlushAll())

	for i, id := range ids {
		got, err := m.Fetch(id)
		require.NoError(t, err)
		assert.Equal(t, byte(i+1), got.Data()[0])
		require.NoError(t, m.Unpin(id, false))
	}
}
