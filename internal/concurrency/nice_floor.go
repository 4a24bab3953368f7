// File: internal/concurrency/nice_floor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/hioload-thread/api"

// CanLowerNiceTo reports whether the calling thread may set its nice value
// to nice, judged from credentials and limits rather than by trying.
func CanLowerNiceTo(sys api.System, nice int) bool {
	if sys.Geteuid() == 0 {
		return true
	}
	if sys.HasSysNiceCapability() {
		return true
	}
	// RLIMIT_NICE encodes the floor as 20 - rlim_cur.
	limit, err := sys.NiceLimit()
	if err != nil {
		return false
	}
	if limit > maxNiceRlimit {
		limit = maxNiceRlimit
	}
	return nice >= niceFloorBase-int(limit)
}

const (
	niceFloorBase = 20
	maxNiceRlimit = 40
)
