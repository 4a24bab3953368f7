// File: internal/concurrency/priority_table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/hioload-thread/api"

// Nice value bounds on Linux.
const (
	minNice = -20
	maxNice = 19
)

type priorityNice struct {
	priority api.ThreadPriority
	nice     int
}

// niceTable is ordered from the lowest to the highest scheduling priority.
var niceTable = [...]priorityNice{
	{api.PriorityBackground, 10},
	{api.PriorityNormal, 0},
	{api.PriorityDisplay, -8},
	{api.PriorityRealtimeAudio, -10},
}

// ToNiceValue returns the nice value for p. Unknown levels map to Normal's.
func ToNiceValue(p api.ThreadPriority) int {
	for _, e := range niceTable {
		if e.priority == p {
			return e.nice
		}
	}
	return 0
}

// FromNiceValue returns the level that best describes nice: walking from the
// lowest priority up, the first level whose nice value is <= nice. Values
// below every entry map to the highest level; values outside the kernel range
// fall back to Normal.
func FromNiceValue(nice int) api.ThreadPriority {
	if nice < minNice || nice > maxNice {
		return api.PriorityNormal
	}
	for _, e := range niceTable {
		if e.nice <= nice {
			return e.priority
		}
	}
	return niceTable[len(niceTable)-1].priority
}
