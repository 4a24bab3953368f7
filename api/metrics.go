// File: api/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// Paths reported to ThreadMetrics.PriorityApplied.
const (
	PathResourceGroup = "resource-group"
	PathRealtime      = "realtime"
	PathNice          = "nice"
	PathFailed        = "failed"
)

// ThreadMetrics receives lifecycle and priority events.
type ThreadMetrics interface {
	ThreadCreated(p ThreadPriority)
	ThreadCreateFailed(reason string)
	ThreadExited()
	ThreadJoined(wait time.Duration)
	PriorityApplied(p ThreadPriority, path string)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) ThreadCreated(ThreadPriority)           {}
func (NopMetrics) ThreadCreateFailed(string)              {}
func (NopMetrics) ThreadExited()                          {}
func (NopMetrics) ThreadJoined(time.Duration)             {}
func (NopMetrics) PriorityApplied(ThreadPriority, string) {}
