// File: api/system.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// System is the boundary to the host kernel. Every scheduling knob is reached
// through a capability probe or an action on this interface so that the
// fallback ladder can be exercised against a fake host.

package api

// Scheduling policies as reported by sched_getscheduler(2).
const (
	SchedNormal = 0
	SchedFIFO   = 1
	SchedRR     = 2
)

// System abstracts the OS calls needed for thread identity and priority.
// A zero ThreadID means the calling thread.
type System interface {
	Gettid() ThreadID
	Getpid() int
	Geteuid() int

	// SetNice sets the per-thread nice value.
	SetNice(tid ThreadID, nice int) error
	// GetNice reads the per-thread nice value.
	GetNice(tid ThreadID) (int, error)

	// RealtimeLimit returns the soft RLIMIT_RTPRIO.
	RealtimeLimit() (uint64, error)
	// NiceLimit returns the soft RLIMIT_NICE.
	NiceLimit() (uint64, error)
	// HasSysNiceCapability reports whether CAP_SYS_NICE is effective.
	HasSysNiceCapability() bool

	// SetScheduler switches tid to policy at the given static priority.
	SetScheduler(tid ThreadID, policy, priority int) error
	// GetScheduler returns the policy and static priority of tid.
	GetScheduler(tid ThreadID) (policy, priority int, err error)

	// DirExists probes for a directory.
	DirExists(path string) bool
	// WriteFile writes data to an existing file and returns the bytes written.
	WriteFile(path string, data []byte) (int, error)
}
