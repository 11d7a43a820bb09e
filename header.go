package bptree

import (
	"encoding/binary"
	"fmt"

	"github.com/ryogrid/bptree-go-for-embedding/storage/page"
)

// HeaderPage is the (index name -> root page id) directory reserved at
// HeaderPageID (spec.md §6; SPEC_FULL.md Supplemented Feature 1, grounded on
// original_source/src/storage/index/b_plus_tree.cpp's UpdateRootPageId via a
// HeaderPage, which the distilled spec only references abstractly).
//
// Layout: count uint32, then count entries of [nameLen uint16][name bytes][rootPageID int32].
// Rewritten wholesale on every update; directories are small and updates rare.
type HeaderPage struct {
	p *page.Page
}

func newHeaderPage(p *page.Page) HeaderPage { return HeaderPage{p: p} }

// InitHeaderPage stamps a freshly allocated header page with an empty directory.
func InitHeaderPage(p *page.Page) HeaderPage {
	h := newHeaderPage(p)
	binary.LittleEndian.PutUint32(h.p.Data()[0:], 0)
	return h
}

func (h HeaderPage) decode() (map[string]PageID, error) {
	buf := h.p.Data()[:]
	count := binary.LittleEndian.Uint32(buf[0:4])
	entries := make(map[string]PageID, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+2 > len(buf) {
			return nil, fmt.Errorf("bptree: header page truncated")
		}
		nameLen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if off+nameLen+4 > len(buf) {
			return nil, fmt.Errorf("bptree: header page truncated")
		}
		name := string(buf[off : off+nameLen])
		off += nameLen
		root := GetPageID(buf[off : off+4])
		off += 4
		entries[name] = root
	}
	return entries, nil
}

func (h HeaderPage) encode(entries map[string]PageID) error {
	buf := h.p.Data()[:]
	need := 4
	for name := range entries {
		need += 2 + len(name) + 4
	}
	if need > len(buf) {
		return fmt.Errorf("bptree: header page directory too large (%d bytes)", need)
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	off := 4
	for name, root := range entries {
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(name)))
		off += 2
		copy(buf[off:off+len(name)], name)
		off += len(name)
		PutPageID(buf[off:off+4], root)
		off += 4
	}
	for ; off < len(buf); off++ {
		buf[off] = 0
	}
	return nil
}

// GetRootPageID looks up the root page id registered for name.
func (h HeaderPage) GetRootPageID(name string) (PageID, bool, error) {
	entries, err := h.decode()
	if err != nil {
		return InvalidPageID, false, err
	}
	id, ok := entries[name]
	return id, ok, nil
}

// SetRootPageID registers (or updates) name's root page id.
func (h HeaderPage) SetRootPageID(name string, root PageID) error {
	entries, err := h.decode()
	if err != nil {
		return err
	}
	entries[name] = root
	return h.encode(entries)
}
