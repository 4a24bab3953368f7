// File: internal/concurrency/identity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"runtime"

	"github.com/jtolds/gls"
	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/internal/contract"
)

type identityKey struct{}

// identitySlot is read and written only by the thread that owns it.
type identitySlot struct {
	tid api.ThreadID
}

// IdentityCache caches the kernel id of each native thread.
type IdentityCache struct {
	sys api.System
	mgr *gls.ContextManager
}

// NewIdentityCache creates a cache and registers its fork hook on forks.
func NewIdentityCache(sys api.System, forks *ForkRegistry) *IdentityCache {
	c := &IdentityCache{sys: sys, mgr: gls.NewContextManager()}
	forks.RegisterAfterForkChild(c.invalidateCurrentThreadCache)
	return c
}

// Bind runs fn with a fresh identity slot. It must be called on a goroutine
// locked to its OS thread, and the slot must not escape to other goroutines.
func (c *IdentityCache) Bind(fn func()) {
	c.mgr.SetValues(gls.Values{identityKey{}: &identitySlot{tid: api.InvalidThreadID}}, fn)
}

func (c *IdentityCache) slot() *identitySlot {
	v, ok := c.mgr.GetValue(identityKey{})
	if !ok {
		return nil
	}
	return v.(*identitySlot)
}

// CurrentID returns the calling thread's kernel id. Threads without a slot
// query the kernel every time.
func (c *IdentityCache) CurrentID() api.ThreadID {
	s := c.slot()
	if s == nil {
		return c.sys.Gettid()
	}
	if s.tid == api.InvalidThreadID {
		s.tid = c.sys.Gettid()
		return s.tid
	}
	if dcheckEnabled {
		fresh := c.sys.Gettid()
		contract.Check(fresh == s.tid, "identity",
			"cached thread id %d differs from kernel id %d; the process was likely forked without running fork hooks",
			s.tid, fresh)
	}
	return s.tid
}

// PinnedID is CurrentID for callers about to change per-thread kernel state
// (priority, name). A caller without a slot is locked to its OS thread for
// the rest of its life, so the change stays with that goroutine and never
// leaks to other goroutines through the runtime's thread pool.
func (c *IdentityCache) PinnedID() api.ThreadID {
	if c.slot() == nil {
		runtime.LockOSThread()
	}
	return c.CurrentID()
}

// invalidateCurrentThreadCache drops the calling thread's cached id. The next
// CurrentID call on this thread queries the kernel again.
func (c *IdentityCache) invalidateCurrentThreadCache() {
	if s := c.slot(); s != nil {
		s.tid = api.InvalidThreadID
	}
}
