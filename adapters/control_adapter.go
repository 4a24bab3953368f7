// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/control"
)

// ThreadLister reports the named live threads.
type ThreadLister interface {
	Snapshot() []api.ThreadInfo
}

// ControlAdapter exposes the config store, metrics, debug probes and naming
// registry through api.Control.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.Metrics
	debug   *control.DebugProbes
	threads ThreadLister
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter wires the adapter. metrics and threads may be nil.
func NewControlAdapter(config *control.ConfigStore, metrics *control.Metrics,
	debug *control.DebugProbes, threads ThreadLister) *ControlAdapter {
	if debug == nil {
		debug = control.NewDebugProbes()
	}
	return &ControlAdapter{
		config:  config,
		metrics: metrics,
		debug:   debug,
		threads: threads,
	}
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	return c.config.SetConfig(cfg)
}

// Stats merges metric totals with debug probe output under "debug.".
func (c *ControlAdapter) Stats() map[string]any {
	combined := make(map[string]any)
	if c.metrics != nil {
		for k, v := range c.metrics.Snapshot() {
			combined[k] = v
		}
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	if c.threads != nil {
		combined["threads.named"] = len(c.threads.Snapshot())
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(func(control.Config) { fn() })
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

func (c *ControlAdapter) LiveThreads() []api.ThreadInfo {
	if c.threads == nil {
		return nil
	}
	return c.threads.Snapshot()
}
