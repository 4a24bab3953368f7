//go:build race
// +build race

package concurrency

// DefaultThreadStackSize doubles the usual 8 MiB thread stack because the
// race detector bloats stack usage.
func DefaultThreadStackSize() int64 { return 2 * (8 << 20) }
