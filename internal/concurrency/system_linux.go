//go:build linux
// +build linux

// File: internal/concurrency/system_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Host implementation of api.System on Linux. Under NPTL the nice value and
// the scheduling policy are per-thread attributes, so a tid can be used where
// the man pages speak of a pid.

package concurrency

import (
	"os"
	"unsafe"

	"github.com/momentics/hioload-thread/api"
	"golang.org/x/sys/unix"
)

// schedResetOnFork is or-ed into the policy reported by sched_getscheduler.
const schedResetOnFork = 0x40000000

// niceZero is NZERO: getpriority(2) returns 20 - nice from the raw syscall.
const niceZero = 20

type schedParam struct {
	priority int32
}

type hostSystem struct{}

// NewHostSystem returns the api.System backed by the running kernel.
func NewHostSystem() api.System { return hostSystem{} }

func (hostSystem) Gettid() api.ThreadID { return api.ThreadID(unix.Gettid()) }
func (hostSystem) Getpid() int          { return unix.Getpid() }
func (hostSystem) Geteuid() int         { return unix.Geteuid() }

func (hostSystem) SetNice(tid api.ThreadID, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, int(tid), nice)
}

func (hostSystem) GetNice(tid api.ThreadID) (int, error) {
	prio, err := unix.Getpriority(unix.PRIO_PROCESS, int(tid))
	if err != nil {
		return 0, err
	}
	return niceZero - prio, nil
}

func softLimit(resource int) (uint64, error) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(resource, &rlim); err != nil {
		return 0, err
	}
	return rlim.Cur, nil
}

func (hostSystem) RealtimeLimit() (uint64, error) { return softLimit(unix.RLIMIT_RTPRIO) }
func (hostSystem) NiceLimit() (uint64, error)     { return softLimit(unix.RLIMIT_NICE) }

func (hostSystem) HasSysNiceCapability() bool {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return false
	}
	return data[unix.CAP_SYS_NICE/32].Effective&(1<<(unix.CAP_SYS_NICE%32)) != 0
}

func (hostSystem) SetScheduler(tid api.ThreadID, policy, priority int) error {
	p := schedParam{priority: int32(priority)}
	_, _, errno := unix.RawSyscall(unix.SYS_SCHED_SETSCHEDULER,
		uintptr(tid), uintptr(policy), uintptr(unsafe.Pointer(&p)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (hostSystem) GetScheduler(tid api.ThreadID) (int, int, error) {
	r, _, errno := unix.RawSyscall(unix.SYS_SCHED_GETSCHEDULER, uintptr(tid), 0, 0)
	if errno != 0 {
		return 0, 0, errno
	}
	var p schedParam
	if _, _, errno = unix.RawSyscall(unix.SYS_SCHED_GETPARAM,
		uintptr(tid), uintptr(unsafe.Pointer(&p)), 0); errno != 0 {
		return 0, 0, errno
	}
	return int(r) &^ schedResetOnFork, int(p.priority), nil
}

func (hostSystem) DirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// WriteFile writes into an existing file; cgroup membership files are never created.
func (hostSystem) WriteFile(path string, data []byte) (int, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
