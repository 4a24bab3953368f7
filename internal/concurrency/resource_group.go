// File: internal/concurrency/resource_group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Resource-group (cgroup v1) placement of threads by priority.

package concurrency

import (
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/api"
)

// Defaults for the resource-group layout.
const (
	DefaultCgroupRoot      = "/sys/fs/cgroup"
	DefaultCgroupNamespace = "hioload"
)

// cgroupHierarchies are the CPU weight and scheduler tuning controllers.
var cgroupHierarchies = []string{"cpuset", "schedtune"}

const membershipFile = "tasks"

// ResourceGroups places threads into per-priority groups under
// <root>/<hierarchy>/<namespace>. Hosts without these directories are
// expected; placement is then skipped.
type ResourceGroups struct {
	sys       api.System
	root      string
	namespace string
	log       hclog.Logger
}

// NewResourceGroups creates a placer rooted at root.
func NewResourceGroups(sys api.System, root, namespace string, log hclog.Logger) *ResourceGroups {
	if root == "" {
		root = DefaultCgroupRoot
	}
	if namespace == "" {
		namespace = DefaultCgroupNamespace
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &ResourceGroups{sys: sys, root: root, namespace: namespace, log: log}
}

// Directory returns the group directory for p inside hierarchy.
func (g *ResourceGroups) Directory(hierarchy string, p api.ThreadPriority) string {
	base := filepath.Join(g.root, hierarchy, g.namespace)
	switch p {
	case api.PriorityBackground:
		return filepath.Join(base, "non-urgent")
	case api.PriorityDisplay, api.PriorityRealtimeAudio:
		return filepath.Join(base, "urgent")
	default:
		return base
	}
}

// Available reports whether the group directory for p exists in hierarchy.
func (g *ResourceGroups) Available(hierarchy string, p api.ThreadPriority) bool {
	return g.sys.DirExists(g.Directory(hierarchy, p))
}

// Place writes tid into every available hierarchy and returns how many
// memberships were written in full.
func (g *ResourceGroups) Place(tid api.ThreadID, p api.ThreadPriority) int {
	placed := 0
	id := strconv.Itoa(int(tid))
	for _, h := range cgroupHierarchies {
		if !g.Available(h, p) {
			continue
		}
		path := filepath.Join(g.Directory(h, p), membershipFile)
		n, err := g.sys.WriteFile(path, []byte(id))
		if err != nil || n != len(id) {
			g.log.Debug("failed to add thread to resource group", "tid", id, "path", path, "error", err)
			continue
		}
		placed++
	}
	return placed
}
