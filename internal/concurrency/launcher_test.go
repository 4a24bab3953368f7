package concurrency

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/fake"
	"github.com/momentics/hioload-thread/internal/blocking"
	"github.com/momentics/hioload-thread/internal/contract"
	"github.com/momentics/hioload-thread/internal/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type launcherFixture struct {
	sys      *fake.System
	ids      *IdentityCache
	ctrl     *PriorityController
	names    *naming.Registry
	policy   *blocking.Policy
	metrics  *recordingMetrics
	launcher *Launcher

	pinMu  sync.Mutex
	pinned []int
}

func (f *launcherFixture) pinnedCPUs() []int {
	f.pinMu.Lock()
	defer f.pinMu.Unlock()
	return append([]int(nil), f.pinned...)
}

func newLauncherFixture(lim Limits) *launcherFixture {
	f := &launcherFixture{sys: fake.NewSystem(), metrics: &recordingMetrics{}}
	f.sys.Euid = 0
	f.ids = NewIdentityCache(f.sys, NewForkRegistry())
	f.ctrl = NewPriorityController(f.sys, f.ids, NewResourceGroups(f.sys, "", "", nil),
		PriorityOptions{Metrics: f.metrics})
	f.names = naming.NewRegistry(f.ids.CurrentID, f.sys.Pid, nil)
	f.policy = blocking.NewPolicy(nil, 0)
	f.launcher = NewLauncher(f.ids, f.ctrl, f.names, f.policy, LauncherOptions{
		Limits:  lim,
		Metrics: f.metrics,
	})
	f.launcher.pin = func(cpu int) error {
		f.pinMu.Lock()
		f.pinned = append(f.pinned, cpu)
		f.pinMu.Unlock()
		return nil
	}
	return f
}

func TestJoinReturnsAfterDelegate(t *testing.T) {
	f := newLauncherFixture(Limits{})
	var ran atomic.Bool
	var observed api.ThreadPriority

	h, err := f.launcher.Create(0, true, api.DelegateFunc(func() {
		observed = f.ctrl.QueryCurrentPriority()
		ran.Store(true)
	}), api.PriorityBackground)
	require.NoError(t, err)
	require.False(t, h.IsNull())

	f.launcher.Join(h)
	assert.True(t, ran.Load())
	assert.Equal(t, api.PriorityBackground, observed)
	assert.Equal(t, 0, f.launcher.Live())
	assert.Equal(t, 1, f.metrics.joins)
	assert.Empty(t, f.launcher.Outstanding())
}

func TestNonJoinableThreadDisallowsBlocking(t *testing.T) {
	f := newLauncherFixture(Limits{})
	allowed := make(chan bool, 1)

	h, err := f.launcher.Create(0, false, api.DelegateFunc(func() {
		allowed <- f.policy.BlockingAllowed()
	}), api.PriorityNormal)
	require.NoError(t, err)
	assert.True(t, h.IsNull())
	assert.False(t, <-allowed)
	assert.Empty(t, f.launcher.Outstanding())
}

func TestJoinableThreadMayBlock(t *testing.T) {
	f := newLauncherFixture(Limits{})
	var allowed bool
	h, err := f.launcher.Create(0, true, api.DelegateFunc(func() {
		allowed = f.policy.BlockingAllowed()
	}), api.PriorityNormal)
	require.NoError(t, err)
	f.launcher.Join(h)
	assert.True(t, allowed)
}

func TestNamedThreadIsRegisteredWhileRunning(t *testing.T) {
	f := newLauncherFixture(Limits{})
	f.sys.Tid = 3003
	var during string

	opts := api.DefaultThreadOptions()
	opts.Name = "audio-mixer"
	opts.PinCPU = true
	opts.CPU = 0
	h, err := f.launcher.CreateWithOptions(opts, api.DelegateFunc(func() {
		during = f.names.GetName(f.ids.CurrentID())
	}))
	require.NoError(t, err)
	f.launcher.Join(h)

	assert.Equal(t, "audio-mixer", during)
	assert.Equal(t, "", f.names.GetName(3003))
	assert.Equal(t, api.ThreadID(3003), h.ThreadID())
	assert.Equal(t, []int{0}, f.pinnedCPUs())
}

func TestZeroOptionsLeaveAffinityAlone(t *testing.T) {
	f := newLauncherFixture(Limits{})

	h, err := f.launcher.CreateWithOptions(api.ThreadOptions{Joinable: true}, api.DelegateFunc(func() {}))
	require.NoError(t, err)
	f.launcher.Join(h)
	h, err = f.launcher.CreateWithOptions(api.DefaultThreadOptions(), api.DelegateFunc(func() {}))
	require.NoError(t, err)
	f.launcher.Join(h)

	assert.Empty(t, f.pinnedCPUs())
}

func TestPinnedThreadRejectsNegativeCPU(t *testing.T) {
	f := newLauncherFixture(Limits{})
	opts := api.DefaultThreadOptions()
	opts.PinCPU = true
	opts.CPU = -1

	_, err := f.launcher.CreateWithOptions(opts, api.DelegateFunc(func() {}))
	assert.True(t, errors.Is(err, syscall.EINVAL))
	assert.Equal(t, []string{"invalid-cpu"}, f.metrics.failed)
	assert.Equal(t, 0, f.launcher.Live())
}

func TestDefaultLimitsRejectStacksTheRuntimeCannotGrow(t *testing.T) {
	f := newLauncherFixture(DefaultLimits())

	_, err := f.launcher.Create(1<<30, true, api.DelegateFunc(func() {}), api.PriorityNormal)
	assert.True(t, errors.Is(err, syscall.EINVAL))
	assert.Equal(t, []string{"stack-size"}, f.metrics.failed)

	h, err := f.launcher.Create(DefaultMaxStackSize, true, api.DelegateFunc(func() {}), api.PriorityNormal)
	require.NoError(t, err)
	f.launcher.Join(h)
}

func TestCreateRejectsBadArguments(t *testing.T) {
	f := newLauncherFixture(Limits{MaxThreads: 4, MaxStackSize: 1 << 20})
	noop := api.DelegateFunc(func() {})

	_, err := f.launcher.Create(0, true, nil, api.PriorityNormal)
	assert.True(t, errors.Is(err, syscall.EINVAL))
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))

	_, err = f.launcher.Create(2<<20, true, noop, api.PriorityNormal)
	assert.True(t, errors.Is(err, syscall.EINVAL))

	_, err = f.launcher.Create(0, true, noop, api.ThreadPriority(42))
	assert.True(t, errors.Is(err, syscall.EINVAL))

	assert.Equal(t, 0, f.launcher.Live())
	assert.Equal(t, []string{"nil-delegate", "stack-size", "invalid-priority"}, f.metrics.failed)
}

func TestThreadLimitReportsEAGAIN(t *testing.T) {
	f := newLauncherFixture(Limits{MaxThreads: 1})
	release := make(chan struct{})

	h, err := f.launcher.Create(64<<10, true, api.DelegateFunc(func() { <-release }), api.PriorityNormal)
	require.NoError(t, err)

	_, err = f.launcher.Create(0, true, api.DelegateFunc(func() {}), api.PriorityNormal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syscall.EAGAIN))
	assert.True(t, errors.Is(err, api.ErrResourceExhausted))

	close(release)
	f.launcher.Join(h)

	h, err = f.launcher.Create(0, true, api.DelegateFunc(func() {}), api.PriorityNormal)
	require.NoError(t, err)
	f.launcher.Join(h)
}

func TestConcurrentCreateAndJoin(t *testing.T) {
	f := newLauncherFixture(Limits{})
	var runs atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := f.launcher.Create(0, true, api.DelegateFunc(func() { runs.Add(1) }), api.PriorityDisplay)
			if !assert.NoError(t, err) {
				return
			}
			f.launcher.Join(h)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(32), runs.Load())
	assert.Equal(t, 0, f.launcher.Live())
}

func TestDetachReleasesHandle(t *testing.T) {
	f := newLauncherFixture(Limits{})
	release := make(chan struct{})
	h, err := f.launcher.Create(0, true, api.DelegateFunc(func() { <-release }), api.PriorityNormal)
	require.NoError(t, err)
	assert.Len(t, f.launcher.Outstanding(), 1)

	f.launcher.Detach(h)
	assert.Empty(t, f.launcher.Outstanding())
	close(release)
	<-h.Done()
}

func TestHandleMisuseIsFatal(t *testing.T) {
	if mode := os.Getenv("HANDLE_DEATH"); mode != "" {
		f := newLauncherFixture(Limits{})
		h, _ := f.launcher.Create(0, true, api.DelegateFunc(func() {}), api.PriorityNormal)
		switch mode {
		case "join-twice":
			f.launcher.Join(h)
			f.launcher.Join(h)
		case "join-detached":
			f.launcher.Detach(h)
			f.launcher.Join(h)
		case "detach-twice":
			f.launcher.Detach(h)
			f.launcher.Detach(h)
		case "join-null":
			f.launcher.Join(Handle{})
		}
		return
	}
	for _, mode := range []string{"join-twice", "join-detached", "detach-twice", "join-null"} {
		t.Run(mode, func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=^TestHandleMisuseIsFatal$")
			cmd.Env = append(os.Environ(), "HANDLE_DEATH="+mode)
			err := cmd.Run()
			var exitErr *exec.ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, contract.ExitCode, exitErr.ExitCode())
		})
	}
}

func TestJoinFromDetachedThreadIsFatal(t *testing.T) {
	if os.Getenv("DETACHED_JOIN_DEATH") == "1" {
		f := newLauncherFixture(Limits{})
		inner, _ := f.launcher.Create(0, true, api.DelegateFunc(func() {}), api.PriorityNormal)
		block := make(chan struct{})
		_, _ = f.launcher.Create(0, false, api.DelegateFunc(func() {
			f.launcher.Join(inner)
			close(block)
		}), api.PriorityNormal)
		<-block
		return
	}
	cmd := exec.Command(os.Args[0], "-test.run=^TestJoinFromDetachedThreadIsFatal$")
	cmd.Env = append(os.Environ(), "DETACHED_JOIN_DEATH=1")
	err := cmd.Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, contract.ExitCode, exitErr.ExitCode())
}
