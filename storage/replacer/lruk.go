// Package replacer implements the LRU-K frame replacement policy (C3 in the
// design): spec.md §4.2, ported directly from
// original_source/src/buffer/lru_k_replacer.cpp (CMU 15-445 "BusTub").
//
// A single mutex serializes every public operation (spec.md §4.2
// Concurrency); none of them may block on I/O.
package replacer

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
)

// FrameID identifies a frame slot in the buffer pool, mirroring bptree.FrameID
// without importing the core package (the replacer is a standalone
// collaborator, the way the teacher's buffer-manager internals are free of
// any B+tree-specific type).
type FrameID int32

// LRUK tracks access history per frame and selects eviction victims by
// backward k-distance (spec.md §4.2).
type LRUK struct {
	mu sync.Mutex

	k        int
	capacity int

	now int64 // logical clock, advanced on every RecordAccess

	// history mirrors BusTub's per-frame std::list<size_t>: most-recent
	// access at the front, truncated to length k (lru_k_replacer.cpp).
	history   map[FrameID]*list.List
	evictable map[FrameID]bool
	size      int
}

// New returns an LRU-K replacer tracking up to capacity frames with history
// depth k.
func New(capacity int, k int) *LRUK {
	return &LRUK{
		k:         k,
		capacity:  capacity,
		history:   make(map[FrameID]*list.List),
		evictable: make(map[FrameID]bool),
	}
}

func (r *LRUK) checkValid(id FrameID) {
	if int(id) < 0 || int(id) >= r.capacity {
		panic(fmt.Sprintf("replacer: frame id %d out of range [0,%d)", id, r.capacity))
	}
}

// RecordAccess appends the current timestamp to id's history, truncating to
// the last k accesses, and always advances the clock.
func (r *LRUK) RecordAccess(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkValid(id)

	r.now++
	h, tracked := r.history[id]
	if !tracked {
		h = list.New()
		r.history[id] = h
	}
	h.PushFront(r.now)
	if h.Len() > r.k {
		h.Remove(h.Back())
	}
}

// SetEvictable toggles membership of id in the evictable set. Unknown frames
// (never seen by RecordAccess) are a silent no-op.
func (r *LRUK) SetEvictable(id FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, tracked := r.history[id]; !tracked {
		return
	}
	was := r.evictable[id]
	if evictable && !was {
		r.evictable[id] = true
		r.size++
	} else if !evictable && was {
		delete(r.evictable, id)
		r.size--
	}
}

// Remove force-drops id from tracking. Fatal if id is known but currently
// non-evictable (spec.md §4.2).
func (r *LRUK) Remove(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, tracked := r.history[id]; !tracked {
		return
	}
	if !r.evictable[id] {
		panic(fmt.Sprintf("replacer: Remove called on non-evictable frame %d", id))
	}
	delete(r.evictable, id)
	delete(r.history, id)
	r.size--
}

// Evict selects a victim frame among the evictable set: the frame with the
// largest backward k-distance (fewer than k accesses counts as +Inf), ties
// broken by the earliest relevant timestamp (spec.md §4.2). Returns false if
// no frame is evictable.
func (r *LRUK) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		found     bool
		victim    FrameID
		bestIsInf bool
		bestTime  int64
	)

	for id := range r.evictable {
		h := r.history[id]
		isInf := h.Len() < r.k

		var tiebreak int64
		if isInf {
			tiebreak = h.Front().Value.(int64) // earliest most-recent access among +Inf frames: smaller wins
		} else {
			tiebreak = h.Back().Value.(int64) // earliest k-th-most-recent access
		}

		switch {
		case !found:
			found, victim, bestIsInf, bestTime = true, id, isInf, tiebreak
		case isInf && !bestIsInf:
			victim, bestIsInf, bestTime = id, true, tiebreak
		case isInf == bestIsInf && tiebreak < bestTime:
			victim, bestTime = id, tiebreak
		case !isInf && bestIsInf:
			// current best is +Inf and stays preferred over a finite-distance frame
		}
	}

	if !found {
		return 0, false
	}

	delete(r.evictable, victim)
	delete(r.history, victim)
	r.size--
	slog.Debug("replacer.evict", "frame", victim)
	return victim, true
}

// Size returns the number of evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
