package page

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsZeroedAndUnpinned(t *testing.T) {
	p := New(ID(7))
	assert.Equal(t, ID(7), p.ID())
	assert.Equal(t, int32(0), p.PinCount())
	assert.False(t, p.IsDirty())
	for _, b := range p.Data() {
		assert.Zero(t, b)
	}
}

func TestPinUnpinCount(t *testing.T) {
	p := New(ID(1))
	p.Pin()
	p.Pin()
	assert.Equal(t, int32(2), p.PinCount())
	p.Unpin(false)
	assert.Equal(t, int32(1), p.PinCount())
	p.Unpin(true)
	assert.Equal(t, int32(0), p.PinCount())
	assert.True(t, p.IsDirty())
}

func TestUnpinNeverGoesNegative(t *testing.T) {
	p := New(ID(1))
	p.Unpin(false)
	assert.Equal(t, int32(0), p.PinCount())
}

func TestResetClearsDataAndDirty(t *testing.T) {
	p := New(ID(1))
	p.Data()[0] = 0xFF
	p.Unpin(true)
	assert.True(t, p.IsDirty())

	p.Reset(ID(2))
	assert.Equal(t, ID(2), p.ID())
	assert.False(t, p.IsDirty())
	assert.Zero(t, p.Data()[0])
}

func TestClearDirty(t *testing.T) {
	p := New(ID(1))
	p.Unpin(true)
	assert.True(t, p.IsDirty())
	p.ClearDirty()
	assert.False(t, p.IsDirty())
}

func TestLatchExcludesConcurrentWriters(t *testing.T) {
	p := New(ID(1))
	var mu sync.Mutex
	inCritical := 0
	maxSeen := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.WLatch()
			defer p.WUnlatch()
			mu.Lock()
			inCritical++
			if inCritical > maxSeen {
				maxSeen = inCritical
			}
			mu.Unlock()
			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestRLatchAllowsConcurrentReaders(t *testing.T) {
	p := New(ID(1))
	p.RLatch()
	p.RLatch() // a second concurrent reader must not block
	p.RUnlatch()
	p.RUnlatch()
}
