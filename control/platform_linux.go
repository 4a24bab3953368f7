//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux scheduling limits and capabilities exposed as debug probes.

package control

import (
	"runtime"

	"github.com/momentics/hioload-thread/affinity"
	"github.com/momentics/hioload-thread/api"
)

// RegisterPlatformProbes sets Linux-specific debug probes reading sys.
func RegisterPlatformProbes(dp *DebugProbes, sys api.System) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.allowed_cpus", func() any {
		cpus, err := affinity.Allowed()
		if err != nil {
			return err.Error()
		}
		return cpus
	})
	dp.RegisterProbe("platform.euid", func() any {
		return sys.Geteuid()
	})
	dp.RegisterProbe("platform.cap_sys_nice", func() any {
		return sys.HasSysNiceCapability()
	})
	dp.RegisterProbe("platform.rlimit_rtprio", func() any {
		return limitProbe(sys.RealtimeLimit())
	})
	dp.RegisterProbe("platform.rlimit_nice", func() any {
		return limitProbe(sys.NiceLimit())
	})
}

func limitProbe(v uint64, err error) any {
	if err != nil {
		return err.Error()
	}
	return v
}
