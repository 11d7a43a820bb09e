// Package bptree implements a concurrent B+tree index (C5 in the design)
// over fixed-width keys, with page-level latch crabbing and an LRU-K-backed
// buffer pool collaborator (storage/buffer, storage/replacer).
//
// The crabbing protocol, the separation between the tree and its buffer-pool
// contract (interfaces.BufferPool), and the BPErr-style error taxonomy are
// grounded on ryogrid/bltree-go-for-embedding's latch-chaining idiom
// (PinLatch/PageLock/PageUnlock in bltree.go/bufmgr.go), generalized from
// that teacher's variable-length B-link slotted pages to the fixed
// header+array node layout node.go defines. Split/redistribute/merge
// arithmetic is grounded on original_source/src/storage/index/b_plus_tree.cpp.
package bptree

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ryogrid/bptree-go-for-embedding/interfaces"
	"github.com/ryogrid/bptree-go-for-embedding/storage/buffer"
	"github.com/ryogrid/bptree-go-for-embedding/storage/page"
)

// BPlusTree is a named index sharing a buffer pool with any number of
// sibling indexes through the header page directory (spec.md §6).
type BPlusTree struct {
	name string
	pool interfaces.BufferPool
	cmp  Comparator

	keySize     int
	leafMax     int
	internalMax int

	// rootLatch is the tree-level root lock: spec.md §4.4's top of the
	// pending-latch stack, serializing reads/writes of this tree's entry in
	// the header page directory (the root page id can be replaced by a
	// split/collapse; a node's own content latch is separate and page-local).
	rootLatch sync.Mutex
}

// NewBPlusTree constructs a named B+tree index over pool, comparing keys of
// keySize bytes with cmp. leafMax/internalMax bound node fan-out
// (spec.md §4.1); both must fit within a single page for keySize.
func NewBPlusTree(name string, pool interfaces.BufferPool, cmp Comparator, keySize, leafMax, internalMax int) (*BPlusTree, error) {
	if leafMax > maxLeafFit(keySize) {
		return nil, fmt.Errorf("bptree: leafMax %d too large for key size %d", leafMax, keySize)
	}
	if internalMax > maxInternalFit(keySize) {
		return nil, fmt.Errorf("bptree: internalMax %d too large for key size %d", internalMax, keySize)
	}
	if leafMax < 3 || internalMax < 3 {
		return nil, fmt.Errorf("bptree: leafMax/internalMax must be >= 3")
	}
	return &BPlusTree{
		name:        name,
		pool:        pool,
		cmp:         cmp,
		keySize:     keySize,
		leafMax:     leafMax,
		internalMax: internalMax,
	}, nil
}

func pid(id page.ID) PageID { return PageID(id) }
func pgid(id PageID) page.ID { return page.ID(id) }

// wrapPoolErr classifies a buffer-pool error into the BPErr taxonomy:
// exhaustion gets its own sentinel class since callers may want to retry
// once other operations release pins, while anything else is an opaque I/O
// failure.
func wrapPoolErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, buffer.ErrNoFreeFrame) {
		return &wrappedErr{class: ErrBufferExhausted, cause: err}
	}
	return wrapIO(err)
}

// IsEmpty reports whether the tree currently has no root page registered.
func (t *BPlusTree) IsEmpty() (bool, error) {
	t.rootLatch.Lock()
	defer t.rootLatch.Unlock()
	root, ok, err := t.readRoot()
	if err != nil {
		return false, err
	}
	return !ok || root == InvalidPageID, nil
}

// GetRootPageId returns the tree's current root page id, or InvalidPageID if
// the tree is empty.
func (t *BPlusTree) GetRootPageId() (PageID, error) {
	t.rootLatch.Lock()
	defer t.rootLatch.Unlock()
	root, ok, err := t.readRoot()
	if err != nil {
		return InvalidPageID, err
	}
	if !ok {
		return InvalidPageID, nil
	}
	return root, nil
}

func (t *BPlusTree) readRoot() (PageID, bool, error) {
	hp, err := t.pool.FetchHeader()
	if err != nil {
		return InvalidPageID, false, err
	}
	defer t.pool.Unpin(hp.ID(), false)
	hp.RLatch()
	defer hp.RUnlatch()
	return newHeaderPage(hp).GetRootPageID(t.name)
}

func (t *BPlusTree) writeRoot(root PageID) error {
	hp, err := t.pool.FetchHeader()
	if err != nil {
		return err
	}
	defer t.pool.Unpin(hp.ID(), true)
	hp.WLatch()
	defer hp.WUnlatch()
	return newHeaderPage(hp).SetRootPageID(t.name, root)
}

// fetchRootRLatched takes the tree-level root lock, resolves the current
// root page id, and fetches+RLatches that page before releasing the root
// lock (spec.md §4.4.1 step 1: "Take a global tree-level read lock on
// root_page_id_; Fetch the root; RLatch it; release the global lock"). This
// ordering matters: releasing the root lock first would let a concurrent
// split/collapse replace root_page_id_ before the stale id is dereferenced,
// handing the reader a demoted or freed page. Returns p == nil (no error) if
// the tree is empty.
func (t *BPlusTree) fetchRootRLatched() (p *page.Page, err error) {
	t.rootLatch.Lock()
	root, has, err := t.readRoot()
	if err != nil {
		t.rootLatch.Unlock()
		return nil, err
	}
	if !has || root == InvalidPageID {
		t.rootLatch.Unlock()
		return nil, nil
	}
	rp, ferr := t.pool.Fetch(pgid(root))
	if ferr != nil {
		t.rootLatch.Unlock()
		return nil, wrapPoolErr(ferr)
	}
	rp.RLatch()
	t.rootLatch.Unlock()
	return rp, nil
}

func wrapNodeIsLeaf(p *page.Page, keySize int) bool {
	return node{p: p, keySize: keySize}.IsLeaf()
}

func (t *BPlusTree) internalOf(p *page.Page) InternalNode { return newInternalNode(p, t.keySize) }
func (t *BPlusTree) leafOf(p *page.Page) LeafNode         { return newLeafNode(p, t.keySize) }

// --- GetValue (spec.md §4.1 Search) ---

// GetValue returns the RID stored for key, or ok=false if absent.
func (t *BPlusTree) GetValue(key []byte) (rid RID, ok bool, err error) {
	p, err := t.fetchRootRLatched()
	if err != nil {
		return RID{}, false, err
	}
	if p == nil {
		return RID{}, false, nil
	}

	cur := p
	for {
		if wrapNodeIsLeaf(cur, t.keySize) {
			lf := t.leafOf(cur)
			idx, exact := lf.FindKeyIndex(key, t.cmp)
			var result RID
			if exact {
				result = lf.ValueAt(idx)
			}
			cur.RUnlatch()
			t.pool.Unpin(cur.ID(), false)
			return result, exact, nil
		}
		in := t.internalOf(cur)
		idx, _ := in.FindKeyIndex(key, t.cmp)
		next, ferr := t.pool.Fetch(pgid(in.ValueAt(idx)))
		if ferr != nil {
			cur.RUnlatch()
			t.pool.Unpin(cur.ID(), false)
			return RID{}, false, wrapPoolErr(ferr)
		}
		next.RLatch()
		cur.RUnlatch()
		t.pool.Unpin(cur.ID(), false)
		cur = next
	}
}

// latched tracks a pinned, write-latched page on the pending-latch stack.
// released is set once the page has been WUnlatch'd and Unpinned so the
// final cleanup pass (which may run after a merge already freed the page)
// never double-releases it.
type latched struct {
	p        *page.Page
	dirty    bool
	released bool
}

func (l *latched) release(pool interfaces.BufferPool) {
	if l.released {
		return
	}
	l.released = true
	l.p.WUnlatch()
	pool.Unpin(l.p.ID(), l.dirty)
}

func releaseStack(stack []*latched, pool interfaces.BufferPool) {
	for _, l := range stack {
		l.release(pool)
	}
}

// --- Insert (spec.md §4.4.2) ---

// Insert adds (key, value). Returns ok=false without error if key already
// exists (duplicate keys are rejected, spec.md §9).
func (t *BPlusTree) Insert(key []byte, value RID) (ok bool, err error) {
	t.rootLatch.Lock()
	rootHeld := true
	releaseRoot := func() {
		if rootHeld {
			t.rootLatch.Unlock()
			rootHeld = false
		}
	}
	defer releaseRoot()

	root, has, err := t.readRoot()
	if err != nil {
		return false, err
	}
	if !has || root == InvalidPageID {
		lp, err := t.pool.New()
		if err != nil {
			return false, err
		}
		leaf := InitLeaf(lp, pid(lp.ID()), InvalidPageID, t.leafMax, t.keySize)
		leaf.InsertKeyValueAt(0, key, value)
		if err := t.pool.Unpin(lp.ID(), true); err != nil {
			return false, err
		}
		if err := t.writeRoot(pid(lp.ID())); err != nil {
			return false, err
		}
		slog.Debug("bptree.insert.new_root", "tree", t.name, "page", lp.ID())
		return true, nil
	}

	var stack []*latched
	defer func() { releaseStack(stack, t.pool) }()

	curID := root
	for {
		p, ferr := t.pool.Fetch(pgid(curID))
		if ferr != nil {
			return false, wrapPoolErr(ferr)
		}
		p.WLatch()
		stack = append(stack, &latched{p: p})

		if wrapNodeIsLeaf(p, t.keySize) {
			lf := t.leafOf(p)
			idx, exact := lf.FindKeyIndex(key, t.cmp)
			if exact {
				return false, nil
			}
			lf.InsertKeyValueAt(idx, key, value)
			stack[len(stack)-1].dirty = true
			if lf.Size() < t.leafMax {
				releaseStack(stack, t.pool)
				releaseRoot()
				return true, nil
			}
			return true, t.splitAndPropagate(stack)
		}

		in := t.internalOf(p)
		idx, _ := in.FindKeyIndex(key, t.cmp)
		if in.Size() < in.MaxSize()-1 {
			// p is safe for insert: nothing above it can need modification.
			// Release every ancestor (and the root latch), keep only p.
			top := stack[len(stack)-1]
			releaseStack(stack[:len(stack)-1], t.pool)
			stack = []*latched{top}
			releaseRoot()
		}
		curID = in.ValueAt(idx)
	}
}

// splitAndPropagate handles a leaf (or internal) overflow at the top of
// stack, splitting and propagating separator insertion up through the
// remaining ancestors, creating a new root if the split reaches the top of
// the retained stack (which is always the literal tree root: any retained
// ancestor above it was, by construction, proven safe and cannot itself
// need restructuring from a single child split).
func (t *BPlusTree) splitAndPropagate(stack []*latched) error {
	idx := len(stack) - 1
	cur := stack[idx]

	sepKey, rightID, err := t.splitNode(cur.p)
	if err != nil {
		return err
	}
	cur.dirty = true

	for {
		if idx == 0 {
			np, err := t.pool.New()
			if err != nil {
				return err
			}
			newRoot := InitInternal(np, pid(np.ID()), InvalidPageID, t.internalMax, t.keySize)
			zero := make([]byte, t.keySize)
			newRoot.InsertKeyValueAt(0, zero, pid(cur.p.ID()))
			newRoot.InsertKeyValueAt(1, sepKey, rightID)

			setParent(t, pid(cur.p.ID()), pid(np.ID()))
			setParent(t, rightID, pid(np.ID()))

			if err := t.pool.Unpin(np.ID(), true); err != nil {
				return err
			}
			if err := t.writeRoot(pid(np.ID())); err != nil {
				return err
			}
			releaseStack(stack, t.pool)
			return nil
		}

		parent := stack[idx-1]
		pin := t.internalOf(parent.p)
		childIdx := pin.ChildIndex(pid(cur.p.ID()))
		insertAt := childIdx + 1
		pin.InsertKeyValueAt(insertAt, sepKey, rightID)
		setParent(t, rightID, pid(parent.p.ID()))
		parent.dirty = true
		if pin.Size() < pin.MaxSize() {
			releaseStack(stack, t.pool)
			return nil
		}

		// Parent also overflows (the insert above temporarily left it at
		// MaxSize): split the parent itself and continue propagating one
		// level up.
		sepKey2, rightID2, err := t.splitInternalOverflow(parent.p)
		if err != nil {
			return err
		}
		cur = parent
		sepKey, rightID = sepKey2, rightID2
		idx--
	}
}

// splitNode splits an overflowed leaf or internal page p in place, writing
// the left half back into p and allocating a new right-sibling page.
// Returns the separator key for the parent and the new right page's id.
func (t *BPlusTree) splitNode(p *page.Page) (sepKey []byte, rightID PageID, err error) {
	if wrapNodeIsLeaf(p, t.keySize) {
		return t.splitLeaf(p)
	}
	return t.splitInternalOverflow(p)
}

func (t *BPlusTree) splitLeaf(p *page.Page) ([]byte, PageID, error) {
	lf := t.leafOf(p)
	size := lf.Size()
	mid := size / 2 // left gets the smaller half, matching b_plus_tree.cpp leaf split point

	np, err := t.pool.New()
	if err != nil {
		return nil, InvalidPageID, err
	}
	right := InitLeaf(np, pid(np.ID()), lf.ParentPageID(), t.leafMax, t.keySize)
	for i := mid; i < size; i++ {
		right.InsertKeyValueAt(i-mid, lf.KeyAt(i), lf.ValueAt(i))
	}
	right.SetNextPageID(lf.NextPageID())
	lf.SetNextPageID(pid(np.ID()))
	for i := size - 1; i >= mid; i-- {
		lf.RemoveKeyValueAt(i)
	}

	sepKey := append([]byte(nil), right.KeyAt(0)...)
	if err := t.pool.Unpin(np.ID(), true); err != nil {
		return nil, InvalidPageID, err
	}
	return sepKey, pid(np.ID()), nil
}

// splitInternalOverflow splits an internal page that an insert has
// temporarily filled to MaxSize slots (one beyond its stable maximum of
// MaxSize-1).
func (t *BPlusTree) splitInternalOverflow(p *page.Page) ([]byte, PageID, error) {
	in := t.internalOf(p)
	size := in.Size()
	mid := (size + 1) / 2 // left keeps ceil, matching b_plus_tree.cpp internal split

	np, err := t.pool.New()
	if err != nil {
		return nil, InvalidPageID, err
	}
	right := InitInternal(np, pid(np.ID()), in.ParentPageID(), t.internalMax, t.keySize)

	sepKey := append([]byte(nil), in.KeyAt(mid)...)
	zero := make([]byte, t.keySize)
	right.InsertKeyValueAt(0, zero, in.ValueAt(mid))
	setParent(t, in.ValueAt(mid), pid(np.ID()))
	for i := mid + 1; i < size; i++ {
		right.InsertKeyValueAt(i-mid, in.KeyAt(i), in.ValueAt(i))
		setParent(t, in.ValueAt(i), pid(np.ID()))
	}
	for i := size - 1; i >= mid; i-- {
		in.RemoveKeyValueAt(i)
	}

	if err := t.pool.Unpin(np.ID(), true); err != nil {
		return nil, InvalidPageID, err
	}
	return sepKey, pid(np.ID()), nil
}

// setParent fetches child, updates its stored parent pointer, and unpins it
// dirty. Used after re-parenting a subtree during split/merge/redistribute.
// The child's latch is not taken: the child may be a page the caller already
// holds write-latched on its pending-latch stack.
// A no-op for InvalidPageID (the header's "no parent" sentinel never needs
// a stamped pointer fetched back).
func setParent(t *BPlusTree, child PageID, parent PageID) {
	if child == InvalidPageID {
		return
	}
	p, err := t.pool.Fetch(pgid(child))
	if err != nil {
		slog.Warn("bptree.reparent_failed", "child", child, "err", err)
		return
	}
	node{p: p, keySize: t.keySize}.SetParentPageID(parent)
	t.pool.Unpin(p.ID(), true)
}

// --- Remove (spec.md §4.4.3) ---

// Remove deletes key. Returns ok=false without error if key is absent.
func (t *BPlusTree) Remove(key []byte) (ok bool, err error) {
	t.rootLatch.Lock()
	rootHeld := true
	releaseRoot := func() {
		if rootHeld {
			t.rootLatch.Unlock()
			rootHeld = false
		}
	}
	defer releaseRoot()

	root, has, err := t.readRoot()
	if err != nil {
		return false, err
	}
	if !has || root == InvalidPageID {
		return false, nil
	}

	var stack []*latched
	defer func() { releaseStack(stack, t.pool) }()

	curID := root
	for {
		p, ferr := t.pool.Fetch(pgid(curID))
		if ferr != nil {
			return false, wrapPoolErr(ferr)
		}
		p.WLatch()
		stack = append(stack, &latched{p: p})

		if wrapNodeIsLeaf(p, t.keySize) {
			lf := t.leafOf(p)
			idx, exact := lf.FindKeyIndex(key, t.cmp)
			if !exact {
				return false, nil
			}
			lf.RemoveKeyValueAt(idx)
			stack[len(stack)-1].dirty = true

			isRoot := len(stack) == 1 // only true if this leaf has no ancestors at all
			if isRoot && lf.Size() == 0 {
				// The last key is gone: drop the root leaf and mark the tree empty.
				if err := t.writeRoot(InvalidPageID); err != nil {
					return true, err
				}
				rootID := p.ID()
				releaseStack(stack, t.pool)
				releaseRoot()
				return true, t.pool.Delete(rootID)
			}
			if isRoot || lf.Size() >= lf.GetMinSize() {
				releaseStack(stack, t.pool)
				releaseRoot()
				return true, nil
			}
			return true, t.fixUnderflow(stack)
		}

		in := t.internalOf(p)
		idx, _ := in.FindKeyIndex(key, t.cmp)
		if in.Size() > in.GetMinSize() {
			// p is safe for delete: even if a child below underflows and
			// merges, p will still satisfy GetMinSize afterward.
			top := stack[len(stack)-1]
			releaseStack(stack[:len(stack)-1], t.pool)
			stack = []*latched{top}
			releaseRoot()
		}
		curID = in.ValueAt(idx)
	}
}

// fixUnderflow resolves an underflowed node at the top of stack by
// borrowing from a sibling or merging, propagating upward as needed.
// stack always has length >= 2 on entry (a root leaf never underflows
// structurally, per spec.md; Remove filters that case out before calling).
func (t *BPlusTree) fixUnderflow(stack []*latched) error {
	idx := len(stack) - 1

	for {
		cur := stack[idx]
		parent := stack[idx-1]
		pin := t.internalOf(parent.p)
		pos := pin.ChildIndex(pid(cur.p.ID()))

		leftID, rightID := InvalidPageID, InvalidPageID
		if pos > 0 {
			leftID = pin.ValueAt(pos - 1)
		}
		if pos+1 < pin.Size() {
			rightID = pin.ValueAt(pos + 1)
		}

		resolved := false
		isLeaf := wrapNodeIsLeaf(cur.p, t.keySize)

		if isLeaf {
			if !resolved && leftID != InvalidPageID {
				resolved = t.tryBorrowLeafLeft(cur, pin, pos, leftID)
			}
			if !resolved && rightID != InvalidPageID {
				resolved = t.tryBorrowLeafRight(cur, pin, pos, rightID)
			}
		} else {
			if !resolved && leftID != InvalidPageID {
				resolved = t.tryBorrowInternalLeft(cur, pin, pos, leftID)
			}
			if !resolved && rightID != InvalidPageID {
				resolved = t.tryBorrowInternalRight(cur, pin, pos, rightID)
			}
		}

		if !resolved {
			if leftID != InvalidPageID {
				// Absorb cur into its left sibling; cur's page is freed.
				if isLeaf {
					if err := t.mergeLeafCurIntoLeft(cur, leftID); err != nil {
						return err
					}
				} else {
					sep := append([]byte(nil), pin.KeyAt(pos)...)
					if err := t.mergeInternalCurIntoLeft(cur, leftID, sep); err != nil {
						return err
					}
				}
				pin.RemoveKeyValueAt(pos)
			} else {
				// Absorb the right sibling into cur; sibling's page is freed.
				if isLeaf {
					if err := t.mergeLeafRightIntoCur(cur, rightID); err != nil {
						return err
					}
				} else {
					sep := append([]byte(nil), pin.KeyAt(pos+1)...)
					if err := t.mergeInternalRightIntoCur(cur, rightID, sep); err != nil {
						return err
					}
				}
				pin.RemoveKeyValueAt(pos + 1)
			}
		}
		parent.dirty = true

		if idx-1 == 0 {
			// parent is the bottom of the retained stack: either the tree
			// root, which has no GetMinSize floor, or an ancestor kept as
			// safe for delete, which still has more than one child here.
			// Only an internal root can be down to a single remaining child;
			// it then disappears and that child becomes the root.
			if !wrapNodeIsLeaf(parent.p, t.keySize) && pin.Size() == 1 {
				onlyChild := pin.ValueAt(0)
				setParent(t, onlyChild, InvalidPageID)
				if err := t.writeRoot(onlyChild); err != nil {
					return err
				}
				rootID := parent.p.ID()
				releaseStack(stack[:idx], t.pool)
				parent.release(t.pool)
				return t.pool.Delete(rootID)
			}
			releaseStack(stack, t.pool)
			return nil
		}

		if pin.Size() >= pin.GetMinSize() {
			releaseStack(stack, t.pool)
			return nil
		}
		idx--
	}
}

func (t *BPlusTree) tryBorrowLeafLeft(cur *latched, parent InternalNode, pos int, leftID PageID) bool {
	lp, err := t.pool.Fetch(pgid(leftID))
	if err != nil {
		return false
	}
	defer t.pool.Unpin(lp.ID(), true)
	lp.WLatch()
	defer lp.WUnlatch()
	left := t.leafOf(lp)
	if left.Size() <= left.GetMinSize() {
		return false
	}
	curLeaf := t.leafOf(cur.p)
	lastIdx := left.Size() - 1
	k := append([]byte(nil), left.KeyAt(lastIdx)...)
	v := left.ValueAt(lastIdx)
	left.RemoveKeyValueAt(lastIdx)
	curLeaf.InsertKeyValueAt(0, k, v)
	parent.setKeyAt(pos, k)
	cur.dirty = true
	return true
}

func (t *BPlusTree) tryBorrowLeafRight(cur *latched, parent InternalNode, pos int, rightID PageID) bool {
	rp, err := t.pool.Fetch(pgid(rightID))
	if err != nil {
		return false
	}
	defer t.pool.Unpin(rp.ID(), true)
	rp.WLatch()
	defer rp.WUnlatch()
	right := t.leafOf(rp)
	if right.Size() <= right.GetMinSize() {
		return false
	}
	curLeaf := t.leafOf(cur.p)
	k := append([]byte(nil), right.KeyAt(0)...)
	v := right.ValueAt(0)
	right.RemoveKeyValueAt(0)
	curLeaf.InsertKeyValueAt(curLeaf.Size(), k, v)
	newRightFirst := append([]byte(nil), right.KeyAt(0)...)
	parent.setKeyAt(pos+1, newRightFirst)
	cur.dirty = true
	return true
}

func (t *BPlusTree) tryBorrowInternalLeft(cur *latched, parent InternalNode, pos int, leftID PageID) bool {
	lp, err := t.pool.Fetch(pgid(leftID))
	if err != nil {
		return false
	}
	defer t.pool.Unpin(lp.ID(), true)
	lp.WLatch()
	defer lp.WUnlatch()
	left := t.internalOf(lp)
	if left.Size() <= left.GetMinSize() {
		return false
	}
	curIn := t.internalOf(cur.p)
	lastIdx := left.Size() - 1
	lastKey := append([]byte(nil), left.KeyAt(lastIdx)...)
	lastChild := left.ValueAt(lastIdx)
	left.RemoveKeyValueAt(lastIdx)

	oldSlot0Child := curIn.ValueAt(0)
	zero := make([]byte, t.keySize)
	curIn.InsertKeyValueAt(0, zero, lastChild)
	curIn.setKeyAt(1, append([]byte(nil), parent.KeyAt(pos)...))
	curIn.SetValueAt(1, oldSlot0Child)
	parent.setKeyAt(pos, lastKey)
	setParent(t, lastChild, curIn.PageID())
	cur.dirty = true
	return true
}

func (t *BPlusTree) tryBorrowInternalRight(cur *latched, parent InternalNode, pos int, rightID PageID) bool {
	rp, err := t.pool.Fetch(pgid(rightID))
	if err != nil {
		return false
	}
	defer t.pool.Unpin(rp.ID(), true)
	rp.WLatch()
	defer rp.WUnlatch()
	right := t.internalOf(rp)
	if right.Size() <= right.GetMinSize() {
		return false
	}
	curIn := t.internalOf(cur.p)
	firstChild := right.ValueAt(0)
	oldSep := append([]byte(nil), parent.KeyAt(pos+1)...)
	curIn.InsertKeyValueAt(curIn.Size(), oldSep, firstChild)
	newSep := append([]byte(nil), right.KeyAt(1)...)
	right.RemoveKeyValueAt(0)
	parent.setKeyAt(pos+1, newSep)
	setParent(t, firstChild, curIn.PageID())
	cur.dirty = true
	return true
}

// mergeLeafCurIntoLeft appends cur's entries onto its already-fetched left
// sibling, relinks the leaf chain, and frees cur's own page. cur must not
// be released again by the caller's stack-cleanup pass.
func (t *BPlusTree) mergeLeafCurIntoLeft(cur *latched, leftID PageID) error {
	lp, err := t.pool.Fetch(pgid(leftID))
	if err != nil {
		return err
	}
	lp.WLatch()
	left := t.leafOf(lp)
	right := t.leafOf(cur.p)
	base := left.Size()
	for i := 0; i < right.Size(); i++ {
		left.InsertKeyValueAt(base+i, right.KeyAt(i), right.ValueAt(i))
	}
	left.SetNextPageID(right.NextPageID())
	lp.WUnlatch()
	t.pool.Unpin(lp.ID(), true)

	curID := cur.p.ID()
	cur.release(t.pool)
	return t.pool.Delete(curID)
}

// mergeLeafRightIntoCur appends an already-fetched right sibling's entries
// onto cur (which stays held by the caller's stack) and frees the sibling.
func (t *BPlusTree) mergeLeafRightIntoCur(cur *latched, rightID PageID) error {
	rp, err := t.pool.Fetch(pgid(rightID))
	if err != nil {
		return err
	}
	rp.WLatch()
	left := t.leafOf(cur.p)
	right := t.leafOf(rp)
	base := left.Size()
	for i := 0; i < right.Size(); i++ {
		left.InsertKeyValueAt(base+i, right.KeyAt(i), right.ValueAt(i))
	}
	left.SetNextPageID(right.NextPageID())
	cur.dirty = true
	rp.WUnlatch()
	t.pool.Unpin(rp.ID(), false)
	return t.pool.Delete(rp.ID())
}

// mergeInternalCurIntoLeft is mergeLeafCurIntoLeft's internal-node
// counterpart: sepKey is the separator previously between left and cur.
func (t *BPlusTree) mergeInternalCurIntoLeft(cur *latched, leftID PageID, sepKey []byte) error {
	lp, err := t.pool.Fetch(pgid(leftID))
	if err != nil {
		return err
	}
	lp.WLatch()
	left := t.internalOf(lp)
	right := t.internalOf(cur.p)
	base := left.Size()
	left.InsertKeyValueAt(base, sepKey, right.ValueAt(0))
	setParent(t, right.ValueAt(0), left.PageID())
	for i := 1; i < right.Size(); i++ {
		left.InsertKeyValueAt(base+i, right.KeyAt(i), right.ValueAt(i))
		setParent(t, right.ValueAt(i), left.PageID())
	}
	lp.WUnlatch()
	t.pool.Unpin(lp.ID(), true)

	curID := cur.p.ID()
	cur.release(t.pool)
	return t.pool.Delete(curID)
}

// mergeInternalRightIntoCur is mergeLeafRightIntoCur's internal-node
// counterpart: sepKey is the separator previously between cur and right.
func (t *BPlusTree) mergeInternalRightIntoCur(cur *latched, rightID PageID, sepKey []byte) error {
	rp, err := t.pool.Fetch(pgid(rightID))
	if err != nil {
		return err
	}
	rp.WLatch()
	left := t.internalOf(cur.p)
	right := t.internalOf(rp)
	base := left.Size()
	left.InsertKeyValueAt(base, sepKey, right.ValueAt(0))
	setParent(t, right.ValueAt(0), left.PageID())
	for i := 1; i < right.Size(); i++ {
		left.InsertKeyValueAt(base+i, right.KeyAt(i), right.ValueAt(i))
		setParent(t, right.ValueAt(i), left.PageID())
	}
	cur.dirty = true
	rp.WUnlatch()
	t.pool.Unpin(rp.ID(), false)
	return t.pool.Delete(rp.ID())
}
