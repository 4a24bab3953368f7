package control

import (
	"testing"

	"github.com/momentics/hioload-thread/fake"
	"github.com/stretchr/testify/assert"
)

func TestDebugProbesDumpState(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	dp.RegisterProbe("broken", func() any { panic("boom") })

	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Equal(t, "probe panic: boom", state["broken"])
	assert.Equal(t, []string{"answer", "broken"}, dp.Names())
}

func TestPlatformProbesReadSystem(t *testing.T) {
	sys := fake.NewSystem()
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp, sys)

	state := dp.DumpState()
	assert.Equal(t, 1000, state["platform.euid"])
	assert.Contains(t, state, "platform.cpus")
}
