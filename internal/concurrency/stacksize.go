//go:build !race
// +build !race

package concurrency

// DefaultThreadStackSize is the stack size used when a caller asks for 0.
// Zero leaves the choice to the runtime.
func DefaultThreadStackSize() int64 { return 0 }
