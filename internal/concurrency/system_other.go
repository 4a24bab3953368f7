//go:build !linux
// +build !linux

// File: internal/concurrency/system_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub host for platforms without per-thread scheduling knobs. Identity
// queries degrade to the process id and every priority action reports
// api.ErrNotSupported, which the controller treats as advisory.

package concurrency

import (
	"os"

	"github.com/momentics/hioload-thread/api"
)

type hostSystem struct{}

// NewHostSystem returns the stub api.System.
func NewHostSystem() api.System { return hostSystem{} }

func (hostSystem) Gettid() api.ThreadID { return api.ThreadID(os.Getpid()) }
func (hostSystem) Getpid() int          { return os.Getpid() }
func (hostSystem) Geteuid() int         { return os.Geteuid() }

func (hostSystem) SetNice(api.ThreadID, int) error { return api.ErrNotSupported }
func (hostSystem) GetNice(api.ThreadID) (int, error) {
	return 0, api.ErrNotSupported
}
func (hostSystem) RealtimeLimit() (uint64, error) { return 0, api.ErrNotSupported }
func (hostSystem) NiceLimit() (uint64, error)     { return 0, api.ErrNotSupported }
func (hostSystem) HasSysNiceCapability() bool     { return false }
func (hostSystem) SetScheduler(api.ThreadID, int, int) error {
	return api.ErrNotSupported
}
func (hostSystem) GetScheduler(api.ThreadID) (int, int, error) {
	return 0, 0, api.ErrNotSupported
}
func (hostSystem) DirExists(string) bool { return false }
func (hostSystem) WriteFile(string, []byte) (int, error) {
	return 0, api.ErrNotSupported
}
