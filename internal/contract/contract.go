// File: internal/contract/contract.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fatal handling for programming-contract violations. Environmental failures
// never reach this package: they are logged or returned by their callers.

package contract

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/momentics/hioload-thread/api"
)

// ExitCode is the process status used after a violation.
const ExitCode = 2

// Violation describes a broken contract such as a double join.
type Violation struct {
	Op     string
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Op, v.Detail)
}

// Unwrap places every violation in the api.ErrContractViolation category.
func (v *Violation) Unwrap() error { return api.ErrContractViolation }

var logger atomic.Pointer[hclog.Logger]

// SetLogger routes violation reports to l.
func SetLogger(l hclog.Logger) {
	if l == nil {
		return
	}
	named := l.Named("contract")
	logger.Store(&named)
}

func currentLogger() hclog.Logger {
	if l := logger.Load(); l != nil {
		return *l
	}
	return hclog.Default().Named("contract")
}

// Fatalf reports a violation with a stack trace and terminates the process.
// It never returns.
func Fatalf(op, format string, args ...any) {
	v := &Violation{Op: op, Detail: fmt.Sprintf(format, args...)}
	currentLogger().Error("contract violation", "op", v.Op, "detail", v.Detail,
		"stack", string(debug.Stack()))
	os.Exit(ExitCode)
}

// Check calls Fatalf when cond is false.
func Check(cond bool, op, format string, args ...any) {
	if !cond {
		Fatalf(op, format, args...)
	}
}
