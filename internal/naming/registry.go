// File: internal/naming/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package naming keeps the process-wide thread id to name registry and
// mirrors names into the kernel's per-thread comm field.
package naming

import (
	"sync"

	"github.com/google/btree"
	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/api"
)

type entry struct {
	id   api.ThreadID
	name string
}

func byID(a, b entry) bool { return a.id < b.id }

// Registry implements api.ThreadNamer.
type Registry struct {
	mu    sync.Mutex
	names *btree.BTreeG[entry]
	refs  map[api.ThreadRef]api.ThreadID

	currentID func() api.ThreadID
	pid       int
	setOSName func(string) error
	log       hclog.Logger
}

var _ api.ThreadNamer = (*Registry)(nil)

// NewRegistry creates a registry. currentID resolves the calling thread and
// pid identifies the main thread, whose OS name is never changed.
func NewRegistry(currentID func() api.ThreadID, pid int, log hclog.Logger) *Registry {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Registry{
		names:     btree.NewG[entry](8, byID),
		refs:      make(map[api.ThreadRef]api.ThreadID),
		currentID: currentID,
		pid:       pid,
		setOSName: setThreadName,
		log:       log.Named("naming"),
	}
}

// RegisterThread implements api.ThreadNamer.
func (r *Registry) RegisterThread(ref api.ThreadRef, id api.ThreadID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[ref] = id
	if _, ok := r.names.Get(entry{id: id}); !ok {
		r.names.ReplaceOrInsert(entry{id: id})
	}
}

// RemoveName implements api.ThreadNamer. The main thread keeps its name.
func (r *Registry) RemoveName(ref api.ThreadRef, id api.ThreadID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.refs[ref]; ok && cur == id {
		delete(r.refs, ref)
	}
	if int(id) == r.pid {
		return
	}
	r.names.Delete(entry{id: id})
}

// GetName implements api.ThreadNamer.
func (r *Registry) GetName(id api.ThreadID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, _ := r.names.Get(entry{id: id})
	return e.name
}

// SetName implements api.ThreadNamer.
func (r *Registry) SetName(name string) {
	id := r.currentID()
	r.mu.Lock()
	r.names.ReplaceOrInsert(entry{id: id, name: name})
	r.mu.Unlock()

	// Renaming the main thread would rename the process for tools like killall.
	if int(id) == r.pid {
		return
	}
	if err := r.setOSName(name); err != nil {
		r.log.Error("failed to set thread name", "tid", id, "name", name, "error", err)
	}
}

// Lookup returns the id registered for ref.
func (r *Registry) Lookup(ref api.ThreadRef) (api.ThreadID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refs[ref]
	return id, ok
}

// RefOf returns the launch reference of the registered thread id.
func (r *Registry) RefOf(id api.ThreadID) (api.ThreadRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ref, cur := range r.refs {
		if cur == id {
			return ref, true
		}
	}
	return "", false
}

// Snapshot lists known threads ordered by id.
func (r *Registry) Snapshot() []api.ThreadInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.ThreadInfo, 0, r.names.Len())
	r.names.Ascend(func(e entry) bool {
		out = append(out, api.ThreadInfo{ID: e.id, Name: e.name})
		return true
	})
	return out
}
