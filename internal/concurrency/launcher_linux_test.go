//go:build linux

package concurrency

import (
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/internal/blocking"
	"github.com/momentics/hioload-thread/internal/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestBackgroundThreadOnHost(t *testing.T) {
	root := t.TempDir()
	tasks := filepath.Join(root, "cpuset", "test", "non-urgent", "tasks")
	require.NoError(t, os.MkdirAll(filepath.Dir(tasks), 0o755))
	require.NoError(t, os.WriteFile(tasks, nil, 0o644))

	sys := NewHostSystem()
	ids := NewIdentityCache(sys, NewForkRegistry())
	ctrl := NewPriorityController(sys, ids, NewResourceGroups(sys, root, "test", nil), PriorityOptions{})
	names := naming.NewRegistry(ids.CurrentID, sys.Getpid(), nil)
	l := NewLauncher(ids, ctrl, names, blocking.NewPolicy(nil, 0), LauncherOptions{})

	var ran atomic.Bool
	var observed api.ThreadPriority
	var tid api.ThreadID
	h, err := l.Create(0, true, api.DelegateFunc(func() {
		observed = ctrl.QueryCurrentPriority()
		tid = ids.CurrentID()
		ran.Store(true)
	}), api.PriorityBackground)
	require.NoError(t, err)
	l.Join(h)

	require.True(t, ran.Load())
	assert.Equal(t, api.PriorityBackground, observed)
	assert.NotEqual(t, api.ThreadID(unix.Getpid()), tid)
	data, err := os.ReadFile(tasks)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(int(tid)), string(data))
}

func TestLaunchedThreadsNeverRunOnMainThread(t *testing.T) {
	sys := NewHostSystem()
	ids := NewIdentityCache(sys, NewForkRegistry())
	ctrl := NewPriorityController(sys, ids, nil, PriorityOptions{})
	l := NewLauncher(ids, ctrl, naming.NewRegistry(ids.CurrentID, sys.Getpid(), nil),
		blocking.NewPolicy(nil, 0), LauncherOptions{})

	const n = 64
	tids := make([]api.ThreadID, n)
	handles := make([]Handle, 0, n)
	for i := 0; i < n; i++ {
		i := i
		h, err := l.Create(0, true, api.DelegateFunc(func() {
			tids[i] = ids.CurrentID()
		}), api.PriorityNormal)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		l.Join(h)
	}
	pid := api.ThreadID(unix.Getpid())
	for i, tid := range tids {
		assert.NotEqual(t, pid, tid, "thread %d ran on the main thread", i)
	}
}

func TestPriorityDoesNotLeakToCaller(t *testing.T) {
	sys := NewHostSystem()
	ids := NewIdentityCache(sys, NewForkRegistry())
	ctrl := NewPriorityController(sys, ids, NewResourceGroups(sys, t.TempDir(), "", nil), PriorityOptions{})
	l := NewLauncher(ids, ctrl, naming.NewRegistry(ids.CurrentID, sys.Getpid(), nil),
		blocking.NewPolicy(nil, 0), LauncherOptions{})

	before, err := sys.GetNice(0)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		h, err := l.Create(0, true, api.DelegateFunc(func() {}), api.PriorityBackground)
		require.NoError(t, err)
		l.Join(h)
	}
	// Background threads exit with their OS thread, so no pooled thread
	// carries the raised nice value into another goroutine.
	done := make(chan int)
	go func() {
		n, _ := sys.GetNice(0)
		done <- n
	}()
	assert.Equal(t, before, <-done)
}
