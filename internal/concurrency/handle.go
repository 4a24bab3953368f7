// File: internal/concurrency/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/internal/contract"
)

const (
	handleLive int32 = iota
	handleJoined
	handleDetached
)

// thread is the shared state behind a Handle.
type thread struct {
	ref   api.ThreadRef
	done  chan struct{}
	tid   atomic.Int64
	state atomic.Int32
}

// Handle refers to a joinable thread. It is valid from a successful Create
// until it is consumed by exactly one Join or Detach. The zero Handle is null.
type Handle struct {
	t *thread
}

// IsNull reports whether h refers to no thread.
func (h Handle) IsNull() bool { return h.t == nil }

// Ref returns the thread's launch reference.
func (h Handle) Ref() api.ThreadRef {
	if h.t == nil {
		return ""
	}
	return h.t.ref
}

// ThreadID returns the kernel id once the thread has started, or InvalidThreadID.
func (h Handle) ThreadID() api.ThreadID {
	if h.t == nil {
		return api.InvalidThreadID
	}
	return api.ThreadID(h.t.tid.Load())
}

// Done is closed when the thread's delegate has returned.
func (h Handle) Done() <-chan struct{} {
	if h.t == nil {
		return nil
	}
	return h.t.done
}

func (h Handle) consume(op string, next int32) {
	contract.Check(h.t != nil, op, "null thread handle")
	if !h.t.state.CompareAndSwap(handleLive, next) {
		how := "joined"
		if h.t.state.Load() == handleDetached {
			how = "detached"
		}
		contract.Fatalf(op, "thread %s was already %s", h.t.ref, how)
	}
}

// Join blocks until the thread behind h has finished. It may block for a long
// time and is not cancellable. Joining a null, joined or detached handle
// terminates the process.
func (l *Launcher) Join(h Handle) {
	l.policy.AssertBlockingAllowed()
	h.consume("join", handleJoined)
	l.forget(h.t.ref)

	end := l.policy.ScopedBlockingCall(api.MayBlock, "join "+string(h.t.ref))
	start := time.Now()
	<-h.t.done
	end()
	l.metrics.ThreadJoined(time.Since(start))
}

// Detach releases h; the thread's resources are reclaimed when it exits.
// Detaching a null, joined or detached handle terminates the process.
func (l *Launcher) Detach(h Handle) {
	h.consume("detach", handleDetached)
	l.forget(h.t.ref)
}
