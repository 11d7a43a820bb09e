package bptree

import "encoding/binary"

// PageID identifies a page on disk and in the buffer pool. The sentinel
// InvalidPageID means "none" everywhere a PageID is optional.
type PageID int32

// InvalidPageID is the sentinel for "no page".
const InvalidPageID PageID = -1

// HeaderPageID is reserved for the index-name -> root-page-id directory.
const HeaderPageID PageID = 0

// PageSize is the fixed size, in bytes, of every page.
const PageSize = 4096

// FrameID identifies a frame slot in the buffer pool / replacer.
type FrameID int32

// RID is a record identifier: the physical location of a tuple.
type RID struct {
	PageID PageID
	Slot   uint32
}

// PutPageID writes a PageID into buf as little-endian.
func PutPageID(buf []byte, id PageID) {
	binary.LittleEndian.PutUint32(buf, uint32(int32(id)))
}

// GetPageID reads a PageID from the front of buf.
func GetPageID(buf []byte) PageID {
	return PageID(int32(binary.LittleEndian.Uint32(buf)))
}

// PutRID writes an RID into buf as (page_id int32, slot uint32).
func PutRID(buf []byte, rid RID) {
	PutPageID(buf, rid.PageID)
	binary.LittleEndian.PutUint32(buf[4:], rid.Slot)
}

// GetRID reads an RID from the front of buf.
func GetRID(buf []byte) RID {
	return RID{
		PageID: GetPageID(buf),
		Slot:   binary.LittleEndian.Uint32(buf[4:]),
	}
}

// RIDSize is the on-the-wire size of an RID: page_id (4) + slot (4).
const RIDSize = 8

// Comparator orders two fixed-width keys, returning -1, 0 or 1 the way
// bytes.Compare does. Supplied externally by the caller of NewBPlusTree.
type Comparator func(a, b []byte) int
