// File: internal/concurrency/mainthread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "runtime"

// Package initialization runs on the main goroutine, which the runtime starts
// on the process main thread (tid == pid). Binding that goroutine to it for
// the life of the process keeps the main thread out of the runtime's pool, so
// a launched thread can never land on it.
func init() {
	runtime.LockOSThread()
}
