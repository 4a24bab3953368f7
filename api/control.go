// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// ThreadInfo is a named live thread as seen by the naming registry.
type ThreadInfo struct {
	ID   ThreadID
	Name string
}

// Control manages dynamic config, runtime stats and debug probes.
//
// Config keys are the HIOLOAD_THREAD_* names without the prefix, lower-cased
// (for example "max_threads", "default_stack_size").
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	Stats() map[string]any
	OnReload(fn func())
	RegisterDebugProbe(name string, fn func() any)
	LiveThreads() []ThreadInfo
}
