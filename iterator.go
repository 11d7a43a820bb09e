package bptree

import (
	"github.com/ryogrid/bptree-go-for-embedding/storage/page"
)

// Iterator walks a leaf chain left-to-right. It holds no pin or latch
// between calls (spec.md §4.4.4: "Iterators hold no latch between calls ...
// each dereference re-fetches and reads the leaf under its read latch") —
// only a (leaf page id, slot) cursor is retained, and Key/Value/Next each
// independently Fetch+RLatch+read+RUnlatch+Unpin the current leaf. This
// mirrors original_source/src/storage/index/index_iterator.cpp's Next()/
// operator++ advancing across NextPageID links rather than re-descending
// from root, while never leaving a latch held across caller-visible calls
// (SPEC_FULL.md Supplemented Feature 4).
type Iterator struct {
	t    *BPlusTree
	leaf PageID
	slot int
	done bool
}

// Begin returns an iterator positioned at the first entry of the tree.
func (t *BPlusTree) Begin() (*Iterator, error) {
	p, err := t.fetchRootRLatched()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &Iterator{t: t, done: true}, nil
	}
	leafP, err := t.descendToLeftmostLeafFrom(p)
	if err != nil {
		return nil, err
	}
	it := &Iterator{t: t, leaf: pid(leafP.ID()), slot: 0}
	leafP.RUnlatch()
	t.pool.Unpin(leafP.ID(), false)
	it.skipEmpty()
	return it, nil
}

// BeginAt returns an iterator positioned at the first entry whose key is
// greater than or equal to key.
func (t *BPlusTree) BeginAt(key []byte) (*Iterator, error) {
	p, err := t.fetchRootRLatched()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &Iterator{t: t, done: true}, nil
	}

	cur := p
	for {
		if wrapNodeIsLeaf(cur, t.keySize) {
			lf := t.leafOf(cur)
			idx, _ := lf.FindKeyIndex(key, t.cmp)
			it := &Iterator{t: t, leaf: pid(cur.ID()), slot: idx}
			cur.RUnlatch()
			t.pool.Unpin(cur.ID(), false)
			it.skipEmpty()
			return it, nil
		}
		in := t.internalOf(cur)
		idx, _ := in.FindKeyIndex(key, t.cmp)
		next, ferr := t.pool.Fetch(pgid(in.ValueAt(idx)))
		if ferr != nil {
			cur.RUnlatch()
			t.pool.Unpin(cur.ID(), false)
			return nil, wrapPoolErr(ferr)
		}
		next.RLatch()
		cur.RUnlatch()
		t.pool.Unpin(cur.ID(), false)
		cur = next
	}
}

// descendToLeftmostLeafFrom continues a read-only descent from an
// already-fetched, already-RLatch'd page p, returning the leftmost leaf
// still pinned and RLatch'd. Caller releases it.
func (t *BPlusTree) descendToLeftmostLeafFrom(p *page.Page) (*page.Page, error) {
	cur := p
	for {
		if wrapNodeIsLeaf(cur, t.keySize) {
			return cur, nil
		}
		in := t.internalOf(cur)
		next, err := t.pool.Fetch(pgid(in.ValueAt(0)))
		if err != nil {
			cur.RUnlatch()
			t.pool.Unpin(cur.ID(), false)
			return nil, wrapPoolErr(err)
		}
		next.RLatch()
		cur.RUnlatch()
		t.pool.Unpin(cur.ID(), false)
		cur = next
	}
}

// skipEmpty advances across leaf boundaries while the current leaf is
// exhausted, so an iterator parked mid-tree never reports IsEnd() early on
// a leaf that happens to have been drained by a concurrent Remove. Each
// step re-fetches the leaf under its own latch rather than holding one.
func (it *Iterator) skipEmpty() {
	for !it.done {
		p, err := it.t.pool.Fetch(pgid(it.leaf))
		if err != nil {
			it.done = true
			return
		}
		p.RLatch()
		lf := it.t.leafOf(p)
		if it.slot < lf.Size() {
			p.RUnlatch()
			it.t.pool.Unpin(p.ID(), false)
			return
		}
		next := lf.NextPageID()
		p.RUnlatch()
		it.t.pool.Unpin(p.ID(), false)
		if next == InvalidPageID {
			it.done = true
			return
		}
		it.leaf = next
		it.slot = 0
	}
}

// IsEnd reports whether the iterator has no more entries.
func (it *Iterator) IsEnd() bool { return it.done }

// Key returns the current entry's key, independently re-fetching and
// read-latching the leaf for the duration of the read.
func (it *Iterator) Key() []byte {
	p, err := it.t.pool.Fetch(pgid(it.leaf))
	if err != nil {
		return nil
	}
	p.RLatch()
	k := append([]byte(nil), it.t.leafOf(p).KeyAt(it.slot)...)
	p.RUnlatch()
	it.t.pool.Unpin(p.ID(), false)
	return k
}

// Value returns the current entry's RID, independently re-fetching and
// read-latching the leaf for the duration of the read.
func (it *Iterator) Value() RID {
	p, err := it.t.pool.Fetch(pgid(it.leaf))
	if err != nil {
		return RID{}
	}
	p.RLatch()
	v := it.t.leafOf(p).ValueAt(it.slot)
	p.RUnlatch()
	it.t.pool.Unpin(p.ID(), false)
	return v
}

// Next advances the iterator to the next entry, crossing a leaf boundary if
// the current leaf is exhausted.
func (it *Iterator) Next() {
	if it.done {
		return
	}
	it.slot++
	it.skipEmpty()
}

// Close marks the iterator finished. Safe to call multiple times; since no
// pin or latch is ever held between calls, there is nothing left to release.
func (it *Iterator) Close() {
	it.done = true
}
