// File: facade/platformthread.go
// Unified facade layer for hioload-thread.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PlatformThread aggregates the thread layer behind a single value: identity
// cache, priority controller, launcher, naming registry, blocking policy and
// the control plane (config store, metrics, debug probes). Package-level
// functions operate on a process-wide default instance built on first use.

package facade

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/adapters"
	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/control"
	"github.com/momentics/hioload-thread/internal/blocking"
	"github.com/momentics/hioload-thread/internal/concurrency"
	"github.com/momentics/hioload-thread/internal/contract"
	"github.com/momentics/hioload-thread/internal/naming"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Handle refers to a joinable thread until it is joined or detached.
type Handle = concurrency.Handle

// Options configure New. Zero values select defaults.
type Options struct {
	// Config overrides loading from the environment and ConfigFile.
	Config *control.Config
	// ConfigFile is layered over the environment and watched for changes.
	ConfigFile string
	Logger     hclog.Logger
	// Registerer receives the thread collectors (prom.DefaultRegisterer when nil).
	Registerer prom.Registerer
	// System replaces the host kernel interface, mainly for tests.
	System api.System
	// Forks is the registry that AfterForkChild hooks are added to
	// (the process registry when nil).
	Forks *concurrency.ForkRegistry
}

// PlatformThread is the main facade type.
type PlatformThread struct {
	sys        api.System
	log        hclog.Logger
	store      *control.ConfigStore
	metrics    *control.Metrics
	probes     *control.DebugProbes
	ids        *concurrency.IdentityCache
	priorities *concurrency.PriorityController
	names      *naming.Registry
	policy     *blocking.Policy
	launcher   *concurrency.Launcher
	control    *adapters.ControlAdapter
	forks      *concurrency.ForkRegistry

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New constructs a PlatformThread. Configuration errors are returned; nothing
// is started in that case.
func New(opts Options) (*PlatformThread, error) {
	var cfg control.Config
	if opts.Config != nil {
		cfg = *opts.Config
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if cfg, err = control.Load(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	log := opts.Logger
	if log == nil {
		log = hclog.New(&hclog.LoggerOptions{
			Name:   "hioload-thread",
			Level:  hclog.LevelFromString(cfg.LogLevel),
			Output: os.Stderr,
		})
	}
	contract.SetLogger(log)

	sys := opts.System
	if sys == nil {
		sys = concurrency.NewHostSystem()
	}
	forks := opts.Forks
	if forks == nil {
		forks = concurrency.ProcessForkRegistry()
	}

	metrics, err := control.NewMetrics(control.DefaultNamespace, opts.Registerer)
	if err != nil {
		return nil, err
	}

	p := &PlatformThread{
		sys:     sys,
		log:     log,
		store:   control.NewConfigStore(cfg),
		metrics: metrics,
		probes:  control.NewDebugProbes(),
		forks:   forks,
	}
	p.ids = concurrency.NewIdentityCache(sys, forks)
	groups := concurrency.NewResourceGroups(sys, cfg.CgroupRoot, cfg.CgroupNamespace, log.Named("priority"))
	p.priorities = concurrency.NewPriorityController(sys, p.ids, groups, concurrency.PriorityOptions{
		RealtimePriority: cfg.RealtimePriority,
		Metrics:          metrics,
		Logger:           log,
	})
	p.names = naming.NewRegistry(p.ids.PinnedID, sys.Getpid(), log)
	p.policy = blocking.NewPolicy(log, blocking.DefaultHistory)
	p.launcher = concurrency.NewLauncher(p.ids, p.priorities, p.names, p.policy, concurrency.LauncherOptions{
		Limits:  cfg.Limits(),
		Metrics: metrics,
		Logger:  log,
	})
	p.control = adapters.NewControlAdapter(p.store, metrics, p.probes, p.names)

	control.RegisterPlatformProbes(p.probes, sys)
	p.probes.RegisterProbe("launcher.live", func() any { return p.launcher.Live() })
	p.probes.RegisterProbe("launcher.outstanding", func() any { return len(p.launcher.Outstanding()) })
	p.probes.RegisterProbe("blocking.in_flight", func() any { return len(p.policy.Tracker().InFlight()) })
	p.probes.RegisterProbe("priority.can_increase", func() any {
		out := make(map[string]bool, len(api.AllPriorities))
		for _, prio := range api.AllPriorities {
			out[prio.String()] = p.priorities.CanIncreasePriorityTo(prio)
		}
		return out
	})

	p.store.OnReload(func(c control.Config) {
		p.launcher.SetLimits(c.Limits())
		p.log.SetLevel(hclog.LevelFromString(c.LogLevel))
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	if cfg.HangThreshold > 0 {
		go p.policy.WatchHangs(ctx, cfg.HangThreshold, 0)
	}
	if opts.ConfigFile != "" && opts.Config == nil {
		if err := control.WatchConfigFile(ctx, p.store, opts.ConfigFile, log); err != nil {
			log.Warn("config file is not watched", "path", opts.ConfigFile, "error", err)
		}
	}
	return p, nil
}

// reportOutstanding logs joinable threads that were never joined or detached.
func (p *PlatformThread) reportOutstanding() {
	if refs := p.launcher.Outstanding(); len(refs) > 0 {
		p.log.Warn("joinable threads were neither joined nor detached", "count", len(refs), "refs", refs)
	}
}

// Close stops background watchers. Running threads are unaffected.
func (p *PlatformThread) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.reportOutstanding()
	})
	return nil
}

// Control returns the dynamic config, stats and debug interface.
func (p *PlatformThread) Control() api.Control { return p.control }

// Logger returns the root logger.
func (p *PlatformThread) Logger() hclog.Logger { return p.log }

// CurrentID returns the kernel id of the calling thread.
func (p *PlatformThread) CurrentID() api.ThreadID { return p.ids.CurrentID() }

// CurrentRef returns the launch reference of the calling thread, or "" when
// it was not started by this instance.
func (p *PlatformThread) CurrentRef() api.ThreadRef {
	ref, _ := p.names.RefOf(p.ids.CurrentID())
	return ref
}

// YieldCurrentThread lets other goroutines run.
func (p *PlatformThread) YieldCurrentThread() { runtime.Gosched() }

// Sleep suspends the calling thread for at least d.
func (p *PlatformThread) Sleep(d time.Duration) { time.Sleep(d) }

// GetName returns the registered name of the calling thread.
func (p *PlatformThread) GetName() string { return p.names.GetName(p.ids.CurrentID()) }

// SetName names the calling thread. Only the first 15 bytes reach the kernel.
// A goroutine not started by this instance stays locked to its OS thread.
func (p *PlatformThread) SetName(name string) { p.names.SetName(name) }

// Create starts a joinable thread at normal priority.
func (p *PlatformThread) Create(stackSize int64, d api.Delegate) (Handle, error) {
	return p.launcher.Create(stackSize, true, d, api.PriorityNormal)
}

// CreateWithPriority starts a joinable thread at priority prio.
func (p *PlatformThread) CreateWithPriority(stackSize int64, d api.Delegate, prio api.ThreadPriority) (Handle, error) {
	return p.launcher.Create(stackSize, true, d, prio)
}

// CreateNonJoinable starts a thread that cannot be joined and may not block.
func (p *PlatformThread) CreateNonJoinable(stackSize int64, d api.Delegate) error {
	_, err := p.launcher.Create(stackSize, false, d, api.PriorityNormal)
	return err
}

// CreateNonJoinableWithPriority is CreateNonJoinable at priority prio.
func (p *PlatformThread) CreateNonJoinableWithPriority(stackSize int64, d api.Delegate, prio api.ThreadPriority) error {
	_, err := p.launcher.Create(stackSize, false, d, prio)
	return err
}

// CreateWithOptions starts a thread described by opts, including its name and CPU.
func (p *PlatformThread) CreateWithOptions(opts api.ThreadOptions, d api.Delegate) (Handle, error) {
	return p.launcher.CreateWithOptions(opts, d)
}

// Join waits for the thread behind h. See concurrency.Launcher.Join.
func (p *PlatformThread) Join(h Handle) { p.launcher.Join(h) }

// Detach releases h without waiting.
func (p *PlatformThread) Detach(h Handle) { p.launcher.Detach(h) }

// CanIncreaseThreadPriority reports whether the calling process may raise a
// thread to prio.
func (p *PlatformThread) CanIncreaseThreadPriority(prio api.ThreadPriority) bool {
	return p.priorities.CanIncreasePriorityTo(prio)
}

// SetCurrentThreadPriority applies prio to the calling thread. Failures are
// logged, never returned. A goroutine not started by this instance stays
// locked to its OS thread.
func (p *PlatformThread) SetCurrentThreadPriority(prio api.ThreadPriority) {
	p.priorities.SetCurrentThreadPriority(prio)
}

// GetCurrentThreadPriority reads back the calling thread's priority.
func (p *PlatformThread) GetCurrentThreadPriority() api.ThreadPriority {
	return p.priorities.QueryCurrentPriority()
}

// SetThreadPriority applies prio to thread tid of this process. Passing the
// main thread terminates the process.
func (p *PlatformThread) SetThreadPriority(tid api.ThreadID, prio api.ThreadPriority) {
	p.priorities.SetThreadPriority(tid, prio)
}

// AfterForkChild must be called by the child after a raw fork so cached
// thread ids are dropped.
func (p *PlatformThread) AfterForkChild() { p.forks.AfterForkChild() }

// DefaultThreadStackSize returns the stack size used when 0 is requested.
func (p *PlatformThread) DefaultThreadStackSize() int64 {
	return p.launcher.Limits().DefaultStackSize
}
