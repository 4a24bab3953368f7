// File: internal/concurrency/priority_controller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Priority requests are advisory: every step of the ladder below may be
// unavailable on a given host, and failures leave the previous setting intact.
//
//  1. resource-group placement (cpuset, schedtune)
//  2. real-time round-robin class, RealtimeAudio only
//  3. nice value

package concurrency

import (
	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/internal/contract"
)

// DefaultRealtimePriority is the SCHED_RR static priority used for RealtimeAudio.
const DefaultRealtimePriority = 8

// PriorityController applies and queries thread priorities.
type PriorityController struct {
	sys        api.System
	ids        *IdentityCache
	groups     *ResourceGroups
	rtPriority int
	metrics    api.ThreadMetrics
	log        hclog.Logger
}

// PriorityOptions configure a PriorityController.
type PriorityOptions struct {
	RealtimePriority int
	Metrics          api.ThreadMetrics
	Logger           hclog.Logger
}

// NewPriorityController wires a controller over sys.
func NewPriorityController(sys api.System, ids *IdentityCache, groups *ResourceGroups, opts PriorityOptions) *PriorityController {
	if opts.RealtimePriority <= 0 {
		opts.RealtimePriority = DefaultRealtimePriority
	}
	if opts.Metrics == nil {
		opts.Metrics = api.NopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &PriorityController{
		sys:        sys,
		ids:        ids,
		groups:     groups,
		rtPriority: opts.RealtimePriority,
		metrics:    opts.Metrics,
		log:        opts.Logger.Named("priority"),
	}
}

// CanIncreasePriorityTo reports whether the calling thread may raise its
// priority to p.
func (c *PriorityController) CanIncreasePriorityTo(p api.ThreadPriority) bool {
	if p == api.PriorityRealtimeAudio {
		// sched_setscheduler needs a non-zero soft RLIMIT_RTPRIO.
		limit, err := c.sys.RealtimeLimit()
		return err == nil && limit != 0
	}
	return CanLowerNiceTo(c.sys, ToNiceValue(p))
}

// SetCurrentThreadPriority applies p to the calling thread. A goroutine not
// started by the launcher stays locked to its OS thread afterwards.
func (c *PriorityController) SetCurrentThreadPriority(p api.ThreadPriority) {
	c.ApplyPriority(c.ids.PinnedID(), p)
}

// SetThreadPriority applies p to another thread of this process. The main
// thread is off limits.
func (c *PriorityController) SetThreadPriority(tid api.ThreadID, p api.ThreadPriority) {
	contract.Check(int(tid) != c.sys.Getpid(), "priority",
		"changing the main thread's priority by id is not permitted (tid %d)", tid)
	c.ApplyPriority(tid, p)
}

// ApplyPriority runs the fallback ladder for tid. Re-applying a level is safe.
func (c *PriorityController) ApplyPriority(tid api.ThreadID, p api.ThreadPriority) {
	if c.groups != nil && c.groups.Place(tid, p) > 0 {
		c.metrics.PriorityApplied(p, api.PathResourceGroup)
	}

	if p == api.PriorityRealtimeAudio {
		err := c.sys.SetScheduler(tid, api.SchedRR, c.rtPriority)
		if err == nil {
			c.metrics.PriorityApplied(p, api.PathRealtime)
			return
		}
		c.log.Debug("real-time class unavailable, falling back to nice", "tid", tid, "error", err)
	}

	nice := ToNiceValue(p)
	if err := c.sys.SetNice(tid, nice); err != nil {
		c.log.Debug("failed to set nice value of thread", "tid", tid, "nice", nice, "error", err)
		c.metrics.PriorityApplied(p, api.PathFailed)
		return
	}
	c.metrics.PriorityApplied(p, api.PathNice)
}

// QueryCurrentPriority returns the calling thread's effective level.
func (c *PriorityController) QueryCurrentPriority() api.ThreadPriority {
	return c.QueryPriority(c.ids.CurrentID())
}

// QueryPriority returns the effective level of tid. A nice value alone never
// reports RealtimeAudio: that level requires the real-time class.
func (c *PriorityController) QueryPriority(tid api.ThreadID) api.ThreadPriority {
	policy, prio, err := c.sys.GetScheduler(tid)
	if err == nil && policy == api.SchedRR && prio == c.rtPriority {
		return api.PriorityRealtimeAudio
	}
	nice, err := c.sys.GetNice(tid)
	if err != nil {
		c.log.Debug("failed to get nice value of thread", "tid", tid, "error", err)
		return api.PriorityNormal
	}
	p := FromNiceValue(nice)
	if p == api.PriorityRealtimeAudio {
		return api.PriorityDisplay
	}
	return p
}
