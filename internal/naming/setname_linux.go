//go:build linux
// +build linux

// File: internal/naming/setname_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux comm-name support for the calling thread.

package naming

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxCommLen is TASK_COMM_LEN minus the terminating NUL.
const maxCommLen = 15

// setThreadName sets the calling thread's comm name. Sandboxed processes get
// EPERM, which is expected and ignored.
func setThreadName(name string) error {
	if len(name) > maxCommLen {
		name = name[:maxCommLen]
	}
	b := append([]byte(name), 0)
	err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
	if errors.Is(err, unix.EPERM) {
		return nil
	}
	return err
}
