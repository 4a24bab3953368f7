// File: internal/blocking/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package blocking implements the blocking-call policy used by thread joins:
// scoped may-block markers feeding an activity tracker for hang diagnosis,
// and a per-thread switch that forbids blocking on detached threads.
package blocking
