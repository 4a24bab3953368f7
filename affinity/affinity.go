// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity of the calling OS thread. Callers must
// have locked their goroutine to the thread (runtime.LockOSThread) or the mask
// lands on whatever thread the goroutine happens to run on. Platform-specific
// implementations live in separate files guarded by build tags.

package affinity

// SetAffinity pins the current OS thread to a given logical CPU.
// On unsupported platforms returns an error.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Allowed returns the logical CPUs the current OS thread may run on.
func Allowed() ([]int, error) {
	return allowedPlatform()
}
