// File: internal/concurrency/forkhook.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "sync"

// ForkRegistry holds callbacks to run in a child process right after fork.
// One registry exists per process; it is built on first use and never destroyed.
type ForkRegistry struct {
	mu    sync.Mutex
	hooks []func()
}

var (
	processForks     *ForkRegistry
	processForksOnce sync.Once
)

// ProcessForkRegistry returns the process-wide registry.
func ProcessForkRegistry() *ForkRegistry {
	processForksOnce.Do(func() { processForks = NewForkRegistry() })
	return processForks
}

// NewForkRegistry creates an empty registry. Tests use private registries;
// production code shares ProcessForkRegistry.
func NewForkRegistry() *ForkRegistry {
	return &ForkRegistry{}
}

// RegisterAfterForkChild adds fn to the child-side hooks.
func (r *ForkRegistry) RegisterAfterForkChild(fn func()) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// AfterForkChild runs every hook on the calling thread. Code that forks the
// process without exec must call it in the child before anything else.
func (r *ForkRegistry) AfterForkChild() {
	r.mu.Lock()
	hooks := append([]func(){}, r.hooks...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Len returns the number of registered hooks.
func (r *ForkRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}
