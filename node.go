package bptree

import (
	"encoding/binary"

	"github.com/ryogrid/bptree-go-for-embedding/storage/page"
)

// Node layout (C4 in the design, spec.md §3-§4.3): a common header followed
// by a packed array of fixed-width slots laid directly over a Page's bytes.
//
// Header (little-endian, all fields fixed-width ints):
//
//	offset  0: pageType   uint32  (nodeLeaf | nodeInternal)
//	offset  4: lsn        uint32  (carried for forward-compat with WAL; unused)
//	offset  8: size       int32   (number of occupied slots)
//	offset 12: maxSize    int32
//	offset 16: parentID   int32
//	offset 20: selfID     int32
//	offset 24: nextLeafID int32   (leaf only; internal nodes don't have this field
//	                               and their array starts at offset 24)
//
// Internal-node slot i ([0,size)): key(keySize) + child page id (int32).
// Slot 0's key bytes are unused (spec.md §3 invariant: "slot 0 is special").
//
// Leaf-node slot i ([0,size)): key(keySize) + RID (8 bytes: page id int32 + slot uint32).

type nodeType uint32

const (
	nodeInternal nodeType = iota
	nodeLeaf
)

const (
	offPageType   = 0
	offLSN        = 4
	offSize       = 8
	offMaxSize    = 12
	offParentID   = 16
	offSelfID     = 20
	offNextLeafID = 24

	commonHeaderSize   = 24
	leafHeaderSize     = 28
	internalSlotsStart = commonHeaderSize
	leafSlotsStart     = leafHeaderSize
)

const internalValueSize = 4 // child PageID

// node is the shared accessor base for internal and leaf pages.
type node struct {
	p       *page.Page
	keySize int
}

func (n node) typ() nodeType {
	return nodeType(binary.LittleEndian.Uint32(n.p.Data()[offPageType:]))
}

func (n node) setTyp(t nodeType) {
	binary.LittleEndian.PutUint32(n.p.Data()[offPageType:], uint32(t))
}

func (n node) IsLeaf() bool { return n.typ() == nodeLeaf }

func (n node) Size() int {
	return int(int32(binary.LittleEndian.Uint32(n.p.Data()[offSize:])))
}

func (n node) setSize(v int) {
	binary.LittleEndian.PutUint32(n.p.Data()[offSize:], uint32(int32(v)))
}

func (n node) MaxSize() int {
	return int(int32(binary.LittleEndian.Uint32(n.p.Data()[offMaxSize:])))
}

func (n node) setMaxSize(v int) {
	binary.LittleEndian.PutUint32(n.p.Data()[offMaxSize:], uint32(int32(v)))
}

func (n node) ParentPageID() PageID {
	return PageID(int32(binary.LittleEndian.Uint32(n.p.Data()[offParentID:])))
}

func (n node) SetParentPageID(id PageID) {
	binary.LittleEndian.PutUint32(n.p.Data()[offParentID:], uint32(int32(id)))
}

func (n node) PageID() PageID {
	return PageID(int32(binary.LittleEndian.Uint32(n.p.Data()[offSelfID:])))
}

func (n node) setSelfID(id PageID) {
	binary.LittleEndian.PutUint32(n.p.Data()[offSelfID:], uint32(int32(id)))
}

// GetMinSize implements spec.md §4.3: leaf floor(max/2), internal ceil((max+1)/2).
func (n node) getMinSizeLeaf() int     { return n.MaxSize() / 2 }
func (n node) getMinSizeInternal() int { return (n.MaxSize() + 2) / 2 }

// --- internal node ---

// InternalNode is a node whose children are other nodes; slot 0's key is
// unused (only its child pointer, the "leftmost" subtree, matters).
type InternalNode struct{ node }

func newInternalNode(p *page.Page, keySize int) InternalNode {
	return InternalNode{node{p: p, keySize: keySize}}
}

// InitInternal stamps the header of a fresh internal page.
func InitInternal(p *page.Page, id, parent PageID, maxSize, keySize int) InternalNode {
	in := newInternalNode(p, keySize)
	in.setTyp(nodeInternal)
	in.setSize(0)
	in.setMaxSize(maxSize)
	in.SetParentPageID(parent)
	in.setSelfID(id)
	return in
}

func (in InternalNode) slotSize() int { return in.keySize + internalValueSize }
func (in InternalNode) slotOff(i int) int {
	return internalSlotsStart + i*in.slotSize()
}

func (in InternalNode) GetMinSize() int { return in.getMinSizeInternal() }

// KeyAt returns the separator key at slot i. Slot 0's key is meaningless.
func (in InternalNode) KeyAt(i int) []byte {
	off := in.slotOff(i)
	buf := in.p.Data()
	return buf[off : off+in.keySize]
}

func (in InternalNode) setKeyAt(i int, key []byte) {
	off := in.slotOff(i)
	copy(in.p.Data()[off:off+in.keySize], key)
}

// ValueAt returns the child page id at slot i.
func (in InternalNode) ValueAt(i int) PageID {
	off := in.slotOff(i) + in.keySize
	return GetPageID(in.p.Data()[off : off+4])
}

func (in InternalNode) SetValueAt(i int, child PageID) {
	off := in.slotOff(i) + in.keySize
	PutPageID(in.p.Data()[off:off+4], child)
}

// FindKeyIndex binary-searches the separator keys over [1,size) and returns
// the largest i such that key[i] <= key (or 0 if none), i.e. the index of
// the child to descend into, plus whether key[i] == key exactly
// (spec.md §4.3).
func (in InternalNode) FindKeyIndex(key []byte, cmp Comparator) (idx int, exact bool) {
	size := in.Size()
	lo, hi := 1, size-1 // search among separator slots [1,size)
	result := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		c := cmp(in.KeyAt(mid), key)
		if c <= 0 {
			result = mid
			lo = mid + 1
			if c == 0 {
				return mid, true
			}
		} else {
			hi = mid - 1
		}
	}
	return result, false
}

// InsertKeyValueAt shifts slots [i,size) right by one and writes (key,child)
// into slot i. Precondition: Size() < MaxSize().
func (in InternalNode) InsertKeyValueAt(i int, key []byte, child PageID) {
	size := in.Size()
	for j := size; j > i; j-- {
		copy(in.p.Data()[in.slotOff(j):in.slotOff(j)+in.slotSize()],
			in.p.Data()[in.slotOff(j-1):in.slotOff(j-1)+in.slotSize()])
	}
	in.setKeyAt(i, key)
	in.SetValueAt(i, child)
	in.setSize(size + 1)
}

// RemoveKeyValueAt shifts slots (i,size) left by one, dropping slot i.
func (in InternalNode) RemoveKeyValueAt(i int) {
	size := in.Size()
	for j := i; j < size-1; j++ {
		copy(in.p.Data()[in.slotOff(j):in.slotOff(j)+in.slotSize()],
			in.p.Data()[in.slotOff(j+1):in.slotOff(j+1)+in.slotSize()])
	}
	in.setSize(size - 1)
}

// ChildIndex returns the slot index of child pageID among this node's
// children, or -1 if not found. Used to locate a node's position under its
// parent during underflow handling.
func (in InternalNode) ChildIndex(id PageID) int {
	for i := 0; i < in.Size(); i++ {
		if in.ValueAt(i) == id {
			return i
		}
	}
	return -1
}

// --- leaf node ---

// LeafNode holds (key, RID) entries in strictly increasing key order and a
// forward pointer to the next leaf.
type LeafNode struct{ node }

func newLeafNode(p *page.Page, keySize int) LeafNode {
	return LeafNode{node{p: p, keySize: keySize}}
}

// InitLeaf stamps the header of a fresh leaf page.
func InitLeaf(p *page.Page, id, parent PageID, maxSize, keySize int) LeafNode {
	lf := newLeafNode(p, keySize)
	lf.setTyp(nodeLeaf)
	lf.setSize(0)
	lf.setMaxSize(maxSize)
	lf.SetParentPageID(parent)
	lf.setSelfID(id)
	lf.SetNextPageID(InvalidPageID)
	return lf
}

func (lf LeafNode) slotSize() int { return lf.keySize + RIDSize }
func (lf LeafNode) slotOff(i int) int {
	return leafSlotsStart + i*lf.slotSize()
}

func (lf LeafNode) GetMinSize() int { return lf.getMinSizeLeaf() }

func (lf LeafNode) NextPageID() PageID {
	return GetPageID(lf.p.Data()[offNextLeafID:])
}

func (lf LeafNode) SetNextPageID(id PageID) {
	PutPageID(lf.p.Data()[offNextLeafID:], id)
}

func (lf LeafNode) KeyAt(i int) []byte {
	off := lf.slotOff(i)
	return lf.p.Data()[off : off+lf.keySize]
}

func (lf LeafNode) setKeyAt(i int, key []byte) {
	off := lf.slotOff(i)
	copy(lf.p.Data()[off:off+lf.keySize], key)
}

func (lf LeafNode) ValueAt(i int) RID {
	off := lf.slotOff(i) + lf.keySize
	return GetRID(lf.p.Data()[off : off+RIDSize])
}

func (lf LeafNode) SetValueAt(i int, v RID) {
	off := lf.slotOff(i) + lf.keySize
	PutRID(lf.p.Data()[off:off+RIDSize], v)
}

// FindKeyIndex returns the smallest i such that key[i] >= key, and whether
// that is an exact match (spec.md §4.3).
func (lf LeafNode) FindKeyIndex(key []byte, cmp Comparator) (idx int, exact bool) {
	size := lf.Size()
	lo, hi := 0, size
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(lf.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < size && cmp(lf.KeyAt(lo), key) == 0 {
		return lo, true
	}
	return lo, false
}

// InsertKeyValueAt shifts slots [i,size) right by one and writes (key,value)
// into slot i. Precondition: Size() < MaxSize().
func (lf LeafNode) InsertKeyValueAt(i int, key []byte, value RID) {
	size := lf.Size()
	for j := size; j > i; j-- {
		copy(lf.p.Data()[lf.slotOff(j):lf.slotOff(j)+lf.slotSize()],
			lf.p.Data()[lf.slotOff(j-1):lf.slotOff(j-1)+lf.slotSize()])
	}
	lf.setKeyAt(i, key)
	lf.SetValueAt(i, value)
	lf.setSize(size + 1)
}

// RemoveKeyValueAt shifts slots (i,size) left by one, dropping slot i.
func (lf LeafNode) RemoveKeyValueAt(i int) {
	size := lf.Size()
	for j := i; j < size-1; j++ {
		copy(lf.p.Data()[lf.slotOff(j):lf.slotOff(j)+lf.slotSize()],
			lf.p.Data()[lf.slotOff(j+1):lf.slotOff(j+1)+lf.slotSize()])
	}
	lf.setSize(size - 1)
}

// maxLeafFit and maxInternalFit return the largest max-size that fits within a page for the given
// key size and slot kind; used to validate caller-supplied leaf_max/internal_max.
func maxLeafFit(keySize int) int {
	return (page.Size - leafHeaderSize) / (keySize + RIDSize)
}

func maxInternalFit(keySize int) int {
	return (page.Size - commonHeaderSize) / (keySize + internalValueSize)
}
