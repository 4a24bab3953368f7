// File: api/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread identity, entry points and creation options.

package api

// ThreadID is the kernel thread id (tid) of a native thread.
type ThreadID int

// InvalidThreadID marks an identity that has not been queried yet.
const InvalidThreadID ThreadID = -1

// ThreadRef identifies one launched thread independently of its kernel id,
// which the OS may recycle once the thread exits.
type ThreadRef string

// Delegate is the entry point run on a newly created thread.
// It must stay valid until Run returns.
type Delegate interface {
	Run()
}

// DelegateFunc adapts an ordinary function to Delegate.
type DelegateFunc func()

// Run implements Delegate.
func (f DelegateFunc) Run() { f() }

// ThreadOptions describe a thread to create.
type ThreadOptions struct {
	// StackSize in bytes; 0 selects the default.
	StackSize int64
	// Joinable threads must be joined or detached exactly once.
	Joinable bool
	// Priority is applied on the new thread before the delegate runs.
	Priority ThreadPriority
	// Name is registered for the thread when not empty.
	Name string
	// PinCPU pins the thread to the logical CPU named by CPU. Without it the
	// inherited CPU mask is kept.
	PinCPU bool
	CPU    int
}

// DefaultThreadOptions returns joinable, normal-priority options.
func DefaultThreadOptions() ThreadOptions {
	return ThreadOptions{
		Joinable: true,
		Priority: PriorityNormal,
	}
}
