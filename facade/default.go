// File: facade/default.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide default PlatformThread and package-level shortcuts.

package facade

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/control"
	"github.com/momentics/hioload-thread/internal/contract"
)

var (
	defaultOnce     sync.Once
	defaultInstance *PlatformThread
)

// Default returns the process-wide instance, built on first use from the
// environment and never closed. An invalid environment falls back to the
// built-in defaults.
func Default() *PlatformThread {
	defaultOnce.Do(func() {
		p, err := New(Options{})
		if err != nil {
			hclog.Default().Warn("invalid thread configuration, using defaults", "error", err)
			cfg := control.DefaultConfig()
			p, err = New(Options{Config: &cfg})
		}
		if err != nil {
			contract.Fatalf("default", "cannot build thread layer: %v", err)
		}
		defaultInstance = p
	})
	return defaultInstance
}

func CurrentID() api.ThreadID   { return Default().CurrentID() }
func CurrentRef() api.ThreadRef { return Default().CurrentRef() }
func YieldCurrentThread()       { Default().YieldCurrentThread() }
func Sleep(d time.Duration)     { Default().Sleep(d) }
func GetName() string           { return Default().GetName() }
func SetName(name string)       { Default().SetName(name) }

func Create(stackSize int64, d api.Delegate) (Handle, error) {
	return Default().Create(stackSize, d)
}

func CreateWithPriority(stackSize int64, d api.Delegate, prio api.ThreadPriority) (Handle, error) {
	return Default().CreateWithPriority(stackSize, d, prio)
}

func CreateNonJoinable(stackSize int64, d api.Delegate) error {
	return Default().CreateNonJoinable(stackSize, d)
}

func CreateNonJoinableWithPriority(stackSize int64, d api.Delegate, prio api.ThreadPriority) error {
	return Default().CreateNonJoinableWithPriority(stackSize, d, prio)
}

func CreateWithOptions(opts api.ThreadOptions, d api.Delegate) (Handle, error) {
	return Default().CreateWithOptions(opts, d)
}

func Join(h Handle)   { Default().Join(h) }
func Detach(h Handle) { Default().Detach(h) }

func CanIncreaseThreadPriority(prio api.ThreadPriority) bool {
	return Default().CanIncreaseThreadPriority(prio)
}

func SetCurrentThreadPriority(prio api.ThreadPriority) { Default().SetCurrentThreadPriority(prio) }

func GetCurrentThreadPriority() api.ThreadPriority { return Default().GetCurrentThreadPriority() }

func SetThreadPriority(tid api.ThreadID, prio api.ThreadPriority) {
	Default().SetThreadPriority(tid, prio)
}

func DefaultThreadStackSize() int64 { return Default().DefaultThreadStackSize() }
