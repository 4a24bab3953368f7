// File: api/naming.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// ThreadNamer maps thread ids to human-readable names.
type ThreadNamer interface {
	// RegisterThread records a freshly started thread under its default name.
	RegisterThread(ref ThreadRef, id ThreadID)
	// RemoveName forgets the thread once its entry point has returned.
	RemoveName(ref ThreadRef, id ThreadID)
	// GetName returns the name of id, or "" when none is known.
	GetName(id ThreadID) string
	// SetName names the calling thread.
	SetName(name string)
}
