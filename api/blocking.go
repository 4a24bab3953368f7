// File: api/blocking.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Blocking-call policy contract used around joins and on detached threads.

package api

// BlockingType classifies a scoped blocking call.
type BlockingType int

const (
	// MayBlock marks calls that can block for a long, unbounded time.
	MayBlock BlockingType = iota
	// WillBlock marks calls that are certain to block.
	WillBlock
)

func (t BlockingType) String() string {
	if t == WillBlock {
		return "will-block"
	}
	return "may-block"
}

// BlockingPolicy tracks and restricts blocking calls per thread.
type BlockingPolicy interface {
	// Scope runs fn with a fresh per-thread policy slot.
	Scope(fn func())
	// SetBlockingAllowed changes the calling thread's permission and returns the previous one.
	SetBlockingAllowed(allowed bool) bool
	// AssertBlockingAllowed terminates the process when the calling thread may not block.
	AssertBlockingAllowed()
	// ScopedBlockingCall marks the start of a blocking call; the returned func marks its end.
	ScopedBlockingCall(kind BlockingType, label string) (end func())
}
