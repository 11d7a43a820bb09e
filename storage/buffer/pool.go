// Package buffer implements the buffer-pool manager (C2 in the design):
// spec.md §1/§5's "external collaborator" that the B+tree core only ever
// touches through interfaces.BufferPool.
//
// Grounded on the teacher's storage/buffer/parent_bufmgr_impl.go wiring shape
// (a manager wrapping a frame table behind the interfaces boundary) and the
// map+doubly-linked-list frame-table pattern from
// other_examples KartikBazzad-bunbase/internal/storage/buffer_pool.go, with
// eviction delegated to storage/replacer's LRU-K instead of that example's
// SLRU probation/protected split (spec.md §4.2 names LRU-K specifically).
package buffer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ryogrid/bptree-go-for-embedding/storage/disk"
	"github.com/ryogrid/bptree-go-for-embedding/storage/page"
	"github.com/ryogrid/bptree-go-for-embedding/storage/replacer"
)

// HeaderPageID is the reserved page holding the (index name -> root page id)
// directory (spec.md §6).
const HeaderPageID page.ID = 0

// Manager is a concrete interfaces.BufferPool: a fixed-size frame table
// backed by a disk.Manager, with LRU-K picking eviction victims.
type Manager struct {
	mu sync.Mutex

	disk     *disk.Manager
	replacer *replacer.LRUK

	frames   []*page.Page
	freeList []replacer.FrameID

	pageToFrame map[page.ID]replacer.FrameID
	frameToPage map[replacer.FrameID]page.ID
}

// New returns a buffer pool of poolSize frames over d, evicting with LRU-K
// history depth k. A brand-new (empty) disk reserves page id 0 for the
// header-page directory before any tree node can be allocated, so the two
// never collide; reopening an existing file leaves its page ids untouched.
func New(d *disk.Manager, poolSize int, k int) *Manager {
	if d.NumPages() == 0 {
		d.Allocate()
	}
	frames := make([]*page.Page, poolSize)
	free := make([]replacer.FrameID, poolSize)
	for i := range frames {
		frames[i] = page.New(page.InvalidID)
		free[i] = replacer.FrameID(i)
	}
	return &Manager{
		disk:        d,
		replacer:    replacer.New(poolSize, k),
		frames:      frames,
		freeList:    free,
		pageToFrame: make(map[page.ID]replacer.FrameID),
		frameToPage: make(map[replacer.FrameID]page.ID),
	}
}

// ErrNoFreeFrame is returned (wrapped) when every frame is pinned and the
// replacer has nothing evictable.
var ErrNoFreeFrame = fmt.Errorf("buffer: no free frame")

// acquireFrame returns a frame id ready to hold a new resident page,
// evicting and flushing a victim if the pool is full. Caller holds mu.
func (m *Manager) acquireFrame() (replacer.FrameID, error) {
	if n := len(m.freeList); n > 0 {
		fid := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return fid, nil
	}

	fid, ok := m.replacer.Evict()
	if !ok {
		return 0, ErrNoFreeFrame
	}
	victim := m.frames[fid]
	oldID := m.frameToPage[fid]
	if victim.IsDirty() {
		if err := m.disk.WritePage(int32(oldID), victim.Data()); err != nil {
			return 0, fmt.Errorf("buffer: evict flush page %d: %w", oldID, err)
		}
	}
	delete(m.pageToFrame, oldID)
	delete(m.frameToPage, fid)
	slog.Debug("buffer.evict", "page", oldID, "frame", fid)
	return fid, nil
}

// Fetch returns id's page, pinned, reading it from disk on a cache miss.
func (m *Manager) Fetch(id page.ID) (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.pageToFrame[id]; ok {
		p := m.frames[fid]
		p.Pin()
		m.replacer.RecordAccess(fid)
		m.replacer.SetEvictable(fid, false)
		return p, nil
	}

	fid, err := m.acquireFrame()
	if err != nil {
		return nil, fmt.Errorf("buffer: fetch page %d: %w", id, err)
	}
	p := m.frames[fid]
	p.Reset(id)
	if err := m.disk.ReadPage(int32(id), p.Data()); err != nil {
		m.freeList = append(m.freeList, fid)
		return nil, fmt.Errorf("buffer: fetch page %d: %w", id, err)
	}
	p.Pin()
	m.pageToFrame[id] = fid
	m.frameToPage[fid] = id
	m.replacer.RecordAccess(fid)
	m.replacer.SetEvictable(fid, false)
	slog.Debug("buffer.fetch", "page", id, "frame", fid)
	return p, nil
}

// New allocates a fresh page id, reserves its slot on disk with a zeroed
// page, and returns the pinned, zeroed frame.
func (m *Manager) New() (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := page.ID(m.disk.Allocate())
	fid, err := m.acquireFrame()
	if err != nil {
		return nil, fmt.Errorf("buffer: new page: %w", err)
	}
	p := m.frames[fid]
	p.Reset(id)
	if err := m.disk.WritePage(int32(id), p.Data()); err != nil {
		m.freeList = append(m.freeList, fid)
		return nil, fmt.Errorf("buffer: new page %d: %w", id, err)
	}
	p.Pin()
	m.pageToFrame[id] = fid
	m.frameToPage[fid] = id
	m.replacer.RecordAccess(fid)
	m.replacer.SetEvictable(fid, false)
	slog.Debug("buffer.new", "page", id, "frame", fid)
	return p, nil
}

// Unpin releases one pin on id, marking it dirty if isDirty.
func (m *Manager) Unpin(id page.ID, isDirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageToFrame[id]
	if !ok {
		return fmt.Errorf("buffer: unpin page %d: %w", id, ErrPageNotResident)
	}
	p := m.frames[fid]
	p.Unpin(isDirty)
	if p.PinCount() == 0 {
		m.replacer.SetEvictable(fid, true)
	}
	return nil
}

// ErrPageNotResident is returned when an operation targets a page id that
// isn't currently in the pool.
var ErrPageNotResident = fmt.Errorf("buffer: page not resident")

// Delete evicts id from the pool immediately, failing if it is still
// pinned. A no-op if id isn't resident.
func (m *Manager) Delete(id page.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageToFrame[id]
	if !ok {
		return nil
	}
	p := m.frames[fid]
	if p.PinCount() > 0 {
		return fmt.Errorf("buffer: delete page %d: still pinned", id)
	}
	m.replacer.Remove(fid)
	delete(m.pageToFrame, id)
	delete(m.frameToPage, fid)
	m.freeList = append(m.freeList, fid)
	return nil
}

// FetchHeader fetches the reserved index-directory page (spec.md §6).
func (m *Manager) FetchHeader() (*page.Page, error) {
	return m.Fetch(HeaderPageID)
}

// FlushPage forces id's frame to disk if dirty.
func (m *Manager) FlushPage(id page.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fid, ok := m.pageToFrame[id]
	if !ok {
		return nil
	}
	p := m.frames[fid]
	if !p.IsDirty() {
		return nil
	}
	if err := m.disk.WritePage(int32(id), p.Data()); err != nil {
		return fmt.Errorf("buffer: flush page %d: %w", id, err)
	}
	p.ClearDirty()
	return nil
}

// FlushAll forces every resident dirty frame to disk.
func (m *Manager) FlushAll() error {
	m.mu.Lock()
	ids := make([]page.ID, 0, len(m.pageToFrame))
	for id := range m.pageToFrame {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.FlushPage(id); err != nil {
			return err
		}
	}
	return m.disk.Flush()
}
