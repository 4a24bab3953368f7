// File: api/priority.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable thread priority levels shared by the launcher and the priority controller.

package api

import (
	"fmt"
	"strings"
)

// ThreadPriority is a portable scheduling level for a native thread.
// Levels are not ordered: whether a change is an increase is answered by
// CanIncreaseThreadPriority, never by comparing values.
type ThreadPriority int

const (
	// PriorityBackground suits work that must not disturb interactive threads.
	PriorityBackground ThreadPriority = iota
	// PriorityNormal is the default for every new thread.
	PriorityNormal
	// PriorityDisplay suits threads producing frames or UI updates.
	PriorityDisplay
	// PriorityRealtimeAudio requests the real-time class where permitted.
	PriorityRealtimeAudio
)

// AllPriorities lists every level in table order.
var AllPriorities = []ThreadPriority{
	PriorityBackground,
	PriorityNormal,
	PriorityDisplay,
	PriorityRealtimeAudio,
}

// String implements fmt.Stringer.
func (p ThreadPriority) String() string {
	switch p {
	case PriorityBackground:
		return "background"
	case PriorityNormal:
		return "normal"
	case PriorityDisplay:
		return "display"
	case PriorityRealtimeAudio:
		return "realtime-audio"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Valid reports whether p is one of the defined levels.
func (p ThreadPriority) Valid() bool {
	return p >= PriorityBackground && p <= PriorityRealtimeAudio
}

// ParseThreadPriority converts a configuration string into a level.
func ParseThreadPriority(s string) (ThreadPriority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "background":
		return PriorityBackground, nil
	case "normal", "":
		return PriorityNormal, nil
	case "display":
		return PriorityDisplay, nil
	case "realtime-audio", "realtime_audio", "realtime":
		return PriorityRealtimeAudio, nil
	}
	return PriorityNormal, NewError(ErrCodeInvalidArgument, "unknown thread priority").
		WithContext("value", s)
}
