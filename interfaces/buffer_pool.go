// Package interfaces isolates the B+tree core from any concrete buffer-pool
// implementation, mirroring the boundary the teacher draws between a tree
// and its host (ParentBufMgr / ParentPage in ryogrid/bltree-go-for-embedding)
// — except here the "host" is just this module's own storage/buffer package,
// kept behind an interface so the tree never reaches past its contract
// (spec.md §1: "the buffer pool ... is an external collaborator").
package interfaces

import "github.com/ryogrid/bptree-go-for-embedding/storage/page"

// BufferPool is the buffer-pool contract the B+tree core depends on (C2 in
// the design). Every method pins/unpins per spec.md §5 latch-crabbing
// discipline: Fetch/New return a pinned page; the caller must Unpin exactly
// once per successful Fetch/New.
type BufferPool interface {
	// Fetch returns the page for id, reading it from disk on a cache miss.
	// Returns an error if no frame is free and nothing is evictable
	// (storage/buffer wraps its ErrNoFreeFrame; the tree maps that to
	// ErrBufferExhausted).
	Fetch(id page.ID) (*page.Page, error)

	// New allocates a fresh page id and returns its (pinned, zeroed) page.
	New() (*page.Page, error)

	// Unpin releases one pin on id, marking it dirty if isDirty is true.
	Unpin(id page.ID, isDirty bool) error

	// Delete removes id from the pool and frees its frame, failing if the
	// page is still pinned.
	Delete(id page.ID) error

	// FetchHeader is a convenience wrapper fetching the reserved header page
	// (spec.md §6 index directory).
	FetchHeader() (*page.Page, error)

	// FlushPage forces id's frame to disk if dirty.
	FlushPage(id page.ID) error

	// FlushAll forces every resident dirty frame to disk.
	FlushAll() error
}
