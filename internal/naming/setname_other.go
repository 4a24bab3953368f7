//go:build !linux
// +build !linux

// File: internal/naming/setname_other.go
// Author: momentics <momentics@gmail.com>

package naming

// setThreadName is a no-op where thread comm names are unavailable.
func setThreadName(string) error { return nil }
