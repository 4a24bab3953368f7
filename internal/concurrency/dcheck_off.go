//go:build !threaddebug
// +build !threaddebug

package concurrency

// dcheckEnabled turns on debug-only consistency checks.
const dcheckEnabled = false
