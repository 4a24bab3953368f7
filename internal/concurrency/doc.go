// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Native thread primitives for hioload-thread: dedicated OS threads with a
// controlled lifecycle (create, join, detach), a fork-safe cache of the
// calling thread's kernel id, and translation of portable priority levels
// into resource-group placement, the real-time class and nice values.
//
// A native thread is a goroutine locked to its OS thread for its whole life.
// The runtime destroys such a thread when the goroutine returns, so scheduling
// changes made on it never leak to other goroutines.
package concurrency
