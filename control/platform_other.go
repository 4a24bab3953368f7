//go:build !linux
// +build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>
//
// Debug probes for hosts without thread scheduling controls.

package control

import (
	"runtime"

	"github.com/momentics/hioload-thread/api"
)

// RegisterPlatformProbes sets the probes available on every platform.
func RegisterPlatformProbes(dp *DebugProbes, sys api.System) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.euid", func() any {
		return sys.Geteuid()
	})
}
