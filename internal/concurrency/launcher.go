// File: internal/concurrency/launcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/affinity"
	"github.com/momentics/hioload-thread/api"
)

// DefaultMaxThreads stays below the runtime's own limit (debug.SetMaxThreads,
// 10000 by default), which aborts the process instead of failing a creation.
const DefaultMaxThreads = 8192

// DefaultMaxStackSize matches the runtime's maximum goroutine stack on 64-bit
// hosts (runtime.maxstacksize, see debug.SetMaxStack). A larger stack aborts
// the process when the thread grows into it.
const DefaultMaxStackSize int64 = 1_000_000_000

// Limits bound thread creation. Zero MaxThreads or MaxStackSize disables the bound.
type Limits struct {
	MaxThreads       int
	MaxStackSize     int64
	DefaultStackSize int64
}

// DefaultLimits returns the launcher's built-in limits.
func DefaultLimits() Limits {
	return Limits{
		MaxThreads:       DefaultMaxThreads,
		MaxStackSize:     DefaultMaxStackSize,
		DefaultStackSize: DefaultThreadStackSize(),
	}
}

// LauncherOptions configure a Launcher.
type LauncherOptions struct {
	Limits  Limits
	Metrics api.ThreadMetrics
	Logger  hclog.Logger
}

// Launcher creates native threads.
type Launcher struct {
	ids        *IdentityCache
	priorities *PriorityController
	names      api.ThreadNamer
	policy     api.BlockingPolicy
	metrics    api.ThreadMetrics
	log        hclog.Logger
	pin        func(cpu int) error

	limits atomic.Pointer[Limits]
	live   atomic.Int64

	mu          sync.Mutex
	outstanding map[api.ThreadRef]*thread
}

// threadParams is created by Create and owned by the new thread from the
// moment it is handed over; the creator never touches it again.
type threadParams struct {
	delegate api.Delegate
	joinable bool
	priority api.ThreadPriority
	name     string
	pin      bool
	cpu      int
	t        *thread
}

// NewLauncher wires a launcher over its collaborators.
func NewLauncher(ids *IdentityCache, priorities *PriorityController, names api.ThreadNamer,
	policy api.BlockingPolicy, opts LauncherOptions) *Launcher {
	if opts.Metrics == nil {
		opts.Metrics = api.NopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	l := &Launcher{
		ids:         ids,
		priorities:  priorities,
		names:       names,
		policy:      policy,
		metrics:     opts.Metrics,
		log:         opts.Logger.Named("launcher"),
		pin:         affinity.SetAffinity,
		outstanding: make(map[api.ThreadRef]*thread),
	}
	l.SetLimits(opts.Limits)
	return l
}

// SetLimits replaces the creation limits; running threads are unaffected.
func (l *Launcher) SetLimits(lim Limits) {
	l.limits.Store(&lim)
}

// Limits returns the current creation limits.
func (l *Launcher) Limits() Limits { return *l.limits.Load() }

// Live returns the number of threads whose delegate has not returned.
func (l *Launcher) Live() int { return int(l.live.Load()) }

// Create starts a thread running d at priority p. A zero stackSize selects
// the default; a non-zero one is a lower bound. Non-joinable threads return
// the null Handle.
func (l *Launcher) Create(stackSize int64, joinable bool, d api.Delegate, p api.ThreadPriority) (Handle, error) {
	opts := api.DefaultThreadOptions()
	opts.StackSize = stackSize
	opts.Joinable = joinable
	opts.Priority = p
	return l.CreateWithOptions(opts, d)
}

// CreateWithOptions starts a thread described by opts. On failure nothing is
// started and the error wraps the errno describing the cause.
func (l *Launcher) CreateWithOptions(opts api.ThreadOptions, d api.Delegate) (Handle, error) {
	if d == nil {
		return Handle{}, l.createFailed("nil-delegate", api.ErrCodeInvalidArgument, syscall.EINVAL, "nil thread delegate")
	}
	if !opts.Priority.Valid() {
		return Handle{}, l.createFailed("invalid-priority", api.ErrCodeInvalidArgument, syscall.EINVAL, "invalid thread priority").
			WithContext("priority", int(opts.Priority))
	}
	if opts.PinCPU && opts.CPU < 0 {
		return Handle{}, l.createFailed("invalid-cpu", api.ErrCodeInvalidArgument, syscall.EINVAL, "invalid cpu").
			WithContext("cpu", opts.CPU)
	}
	lim := l.Limits()
	stack := opts.StackSize
	if stack == 0 {
		stack = lim.DefaultStackSize
	}
	if stack < 0 || (lim.MaxStackSize > 0 && stack > lim.MaxStackSize) {
		return Handle{}, l.createFailed("stack-size", api.ErrCodeInvalidArgument, syscall.EINVAL, "stack size out of range").
			WithContext("stack_size", stack).WithContext("max_stack_size", lim.MaxStackSize)
	}
	if n := l.live.Add(1); lim.MaxThreads > 0 && n > int64(lim.MaxThreads) {
		l.live.Add(-1)
		return Handle{}, l.createFailed("thread-limit", api.ErrCodeResourceExhausted, syscall.EAGAIN, "thread limit reached").
			WithContext("max_threads", lim.MaxThreads)
	}

	t := &thread{ref: api.ThreadRef(uuid.NewString()), done: make(chan struct{})}
	t.tid.Store(int64(api.InvalidThreadID))
	if !opts.Joinable {
		t.state.Store(handleDetached)
	} else {
		l.mu.Lock()
		l.outstanding[t.ref] = t
		l.mu.Unlock()
	}

	go l.threadMain(&threadParams{
		delegate: d,
		joinable: opts.Joinable,
		priority: opts.Priority,
		name:     opts.Name,
		pin:      opts.PinCPU,
		cpu:      opts.CPU,
		t:        t,
	})
	l.metrics.ThreadCreated(opts.Priority)

	if !opts.Joinable {
		return Handle{}, nil
	}
	return Handle{t: t}, nil
}

func (l *Launcher) createFailed(reason string, code api.ErrorCode, errno syscall.Errno, msg string) *api.Error {
	l.metrics.ThreadCreateFailed(reason)
	l.log.Debug("thread creation failed", "reason", reason, "errno", errno)
	return api.NewError(code, msg).WithCause(errno)
}

// threadMain never unlocks the OS thread: the runtime destroys it when this
// goroutine returns, taking every scheduling change with it.
func (l *Launcher) threadMain(params *threadParams) {
	runtime.LockOSThread()
	t := params.t
	defer func() {
		l.live.Add(-1)
		l.metrics.ThreadExited()
		close(t.done)
	}()
	l.ids.Bind(func() {
		l.policy.Scope(func() {
			l.run(params)
		})
	})
}

func (l *Launcher) run(params *threadParams) {
	d, joinable, prio := params.delegate, params.joinable, params.priority
	name, t := params.name, params.t

	if !joinable {
		l.policy.SetBlockingAllowed(false)
	}

	// New threads inherit the creator's nice value; set it explicitly before
	// any user code runs.
	l.priorities.SetCurrentThreadPriority(prio)

	tid := l.ids.CurrentID()
	t.tid.Store(int64(tid))
	if params.pin {
		if err := l.pin(params.cpu); err != nil {
			l.log.Debug("failed to pin thread", "tid", tid, "cpu", params.cpu, "error", err)
		}
	}

	l.names.RegisterThread(t.ref, tid)
	if name != "" {
		l.names.SetName(name)
	}

	d.Run()

	l.names.RemoveName(t.ref, tid)
}

func (l *Launcher) forget(ref api.ThreadRef) {
	l.mu.Lock()
	delete(l.outstanding, ref)
	l.mu.Unlock()
}

// Outstanding lists joinable threads that were neither joined nor detached.
func (l *Launcher) Outstanding() []api.ThreadRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.ThreadRef, 0, len(l.outstanding))
	for ref := range l.outstanding {
		out = append(out, ref)
	}
	return out
}
