// File: internal/blocking/policy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package blocking

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jtolds/gls"
	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/internal/contract"
)

type slotKey struct{}

// slot is owned by exactly one locked thread.
type slot struct {
	disallowed bool
}

// Policy implements api.BlockingPolicy.
type Policy struct {
	mgr     *gls.ContextManager
	tracker *Tracker
	log     hclog.Logger
}

var _ api.BlockingPolicy = (*Policy)(nil)

// NewPolicy creates a policy keeping historySize finished calls.
func NewPolicy(log hclog.Logger, historySize int) *Policy {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Policy{
		mgr:     gls.NewContextManager(),
		tracker: NewTracker(historySize),
		log:     log.Named("blocking"),
	}
}

// Tracker exposes the activity tracker for diagnostics.
func (p *Policy) Tracker() *Tracker { return p.tracker }

// Scope runs fn with its own policy slot. Threads outside any scope may always block.
func (p *Policy) Scope(fn func()) {
	p.mgr.SetValues(gls.Values{slotKey{}: &slot{}}, fn)
}

func (p *Policy) current() *slot {
	v, ok := p.mgr.GetValue(slotKey{})
	if !ok {
		return nil
	}
	return v.(*slot)
}

// SetBlockingAllowed implements api.BlockingPolicy.
func (p *Policy) SetBlockingAllowed(allowed bool) bool {
	s := p.current()
	if s == nil {
		return true
	}
	prev := !s.disallowed
	s.disallowed = !allowed
	return prev
}

// BlockingAllowed reports the calling thread's permission.
func (p *Policy) BlockingAllowed() bool {
	s := p.current()
	return s == nil || !s.disallowed
}

// AssertBlockingAllowed implements api.BlockingPolicy.
func (p *Policy) AssertBlockingAllowed() {
	contract.Check(p.BlockingAllowed(), "blocking",
		"blocking call on a thread that disallows blocking")
}

// ScopedBlockingCall implements api.BlockingPolicy.
func (p *Policy) ScopedBlockingCall(kind api.BlockingType, label string) func() {
	return p.tracker.Begin(kind, label)
}

// WatchHangs logs every call blocked longer than threshold, once per call,
// until ctx is done.
func (p *Policy) WatchHangs(ctx context.Context, threshold, interval time.Duration) {
	if interval <= 0 {
		interval = threshold / 2
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	reported := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		live := make(map[string]struct{})
		now := time.Now()
		for _, a := range p.tracker.Overdue(threshold) {
			key := a.ID.String()
			live[key] = struct{}{}
			if _, seen := reported[key]; seen {
				continue
			}
			reported[key] = struct{}{}
			p.log.Warn("blocking call exceeds hang threshold",
				"label", a.Label, "kind", a.Kind.String(), "blocked", a.Duration(now))
		}
		for key := range reported {
			if _, ok := live[key]; !ok {
				delete(reported, key)
			}
		}
	}
}
