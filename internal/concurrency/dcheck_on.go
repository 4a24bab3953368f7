//go:build threaddebug
// +build threaddebug

package concurrency

const dcheckEnabled = true
