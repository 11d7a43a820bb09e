package bptree

import "fmt"

// BPErr is the core's error taxonomy, mirroring the teacher's BLTErr enum
// (blink_tree.BLTErrOk / BLTErrStruct / ...) but generalized per spec.md §7:
// NotFound/Duplicate recover locally as bool returns. A failed page Fetch
// while descending the tree propagates as a BPErr (ErrBufferExhausted or
// ErrIO); errors from allocating, unpinning or deleting pages and from
// header-page access are returned as the buffer pool reports them, without
// a BPErr class.
type BPErr int

const (
	// ErrOk is not an error; operations that succeed don't return a BPErr.
	ErrOk BPErr = iota
	// ErrBufferExhausted means the buffer pool had no evictable frame.
	// Fatal: pending latches are released before it propagates.
	ErrBufferExhausted
	// ErrCorruption means a debug invariant was violated — a programmer error.
	ErrCorruption
	// ErrIO wraps a failure from the disk-manager collaborator.
	ErrIO
)

func (e BPErr) Error() string {
	switch e {
	case ErrOk:
		return "bptree: ok"
	case ErrBufferExhausted:
		return "bptree: buffer pool exhausted, no evictable frame"
	case ErrCorruption:
		return "bptree: node invariant violated"
	case ErrIO:
		return "bptree: disk I/O failure"
	default:
		return fmt.Sprintf("bptree: unknown error %d", int(e))
	}
}

// wrappedErr attaches a causal error (e.g. from the disk manager) to a BPErr
// class so callers can still errors.Is against the sentinel class.
type wrappedErr struct {
	class BPErr
	cause error
}

func (w *wrappedErr) Error() string { return fmt.Sprintf("%s: %v", w.class.Error(), w.cause) }
func (w *wrappedErr) Unwrap() error { return w.cause }
func (w *wrappedErr) Is(target error) bool {
	t, ok := target.(BPErr)
	return ok && t == w.class
}

func wrapIO(cause error) error {
	if cause == nil {
		return nil
	}
	return &wrappedErr{class: ErrIO, cause: cause}
}
