// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// System emulates the kernel scheduling knobs of a Linux host in memory,
// including the permission rules that decide which changes succeed.

package fake

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/momentics/hioload-thread/api"
)

// System is a fake implementation of api.System for testing.
type System struct {
	mu sync.Mutex

	// TidFunc resolves the calling thread; defaults to returning Tid.
	TidFunc func() api.ThreadID
	Tid     api.ThreadID
	Pid     int
	Euid    int

	RTLimit    uint64
	NiceRlimit uint64
	SysNice    bool

	// Injected failures.
	SetNiceErr  error
	GetNiceErr  error
	SchedErr    error
	RlimitErr   error
	WriteErr    error
	ShortWrites bool

	nice   map[api.ThreadID]int
	sched  map[api.ThreadID][2]int
	dirs   map[string]bool
	writes map[string][]string

	gettidCalls atomic.Int64
}

var _ api.System = (*System)(nil)

// NewSystem returns an unprivileged host: pid 1000, tid 1001, RLIMIT_RTPRIO
// and RLIMIT_NICE at zero, no resource-group directories.
func NewSystem() *System {
	return &System{
		Tid:    1001,
		Pid:    1000,
		Euid:   1000,
		nice:   make(map[api.ThreadID]int),
		sched:  make(map[api.ThreadID][2]int),
		dirs:   make(map[string]bool),
		writes: make(map[string][]string),
	}
}

func (s *System) resolve(tid api.ThreadID) api.ThreadID {
	if tid != 0 {
		return tid
	}
	return s.current()
}

func (s *System) current() api.ThreadID {
	if s.TidFunc != nil {
		return s.TidFunc()
	}
	return s.Tid
}

// Gettid implements api.System.
func (s *System) Gettid() api.ThreadID {
	s.gettidCalls.Add(1)
	return s.current()
}

// GettidCalls reports how often Gettid was queried.
func (s *System) GettidCalls() int64 { return s.gettidCalls.Load() }

// Getpid implements api.System.
func (s *System) Getpid() int { return s.Pid }

// Geteuid implements api.System.
func (s *System) Geteuid() int { return s.Euid }

func (s *System) privileged() bool { return s.Euid == 0 || s.SysNice }

// SetNice implements api.System. Raising niceness always succeeds; lowering
// it is bound by RLIMIT_NICE unless the caller is privileged.
func (s *System) SetNice(tid api.ThreadID, nice int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetNiceErr != nil {
		return s.SetNiceErr
	}
	tid = s.resolve(tid)
	cur := s.nice[tid]
	if nice < cur && !s.privileged() && nice < 20-int(s.NiceRlimit) {
		return syscall.EACCES
	}
	s.nice[tid] = nice
	return nil
}

// GetNice implements api.System.
func (s *System) GetNice(tid api.ThreadID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetNiceErr != nil {
		return 0, s.GetNiceErr
	}
	return s.nice[s.resolve(tid)], nil
}

// RealtimeLimit implements api.System.
func (s *System) RealtimeLimit() (uint64, error) {
	if s.RlimitErr != nil {
		return 0, s.RlimitErr
	}
	return s.RTLimit, nil
}

// NiceLimit implements api.System.
func (s *System) NiceLimit() (uint64, error) {
	if s.RlimitErr != nil {
		return 0, s.RlimitErr
	}
	return s.NiceRlimit, nil
}

// HasSysNiceCapability implements api.System.
func (s *System) HasSysNiceCapability() bool { return s.SysNice }

// SetScheduler implements api.System. Real-time policies need a static
// priority within RLIMIT_RTPRIO unless the caller is privileged.
func (s *System) SetScheduler(tid api.ThreadID, policy, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SchedErr != nil {
		return s.SchedErr
	}
	if policy != api.SchedNormal && !s.privileged() && uint64(priority) > s.RTLimit {
		return syscall.EPERM
	}
	s.sched[s.resolve(tid)] = [2]int{policy, priority}
	return nil
}

// GetScheduler implements api.System.
func (s *System) GetScheduler(tid api.ThreadID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SchedErr != nil {
		return 0, 0, s.SchedErr
	}
	v := s.sched[s.resolve(tid)]
	return v[0], v[1], nil
}

// AddDir makes path and its parents exist.
func (s *System) AddDir(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := filepath.Clean(path); p != "/" && p != "."; p = filepath.Dir(p) {
		s.dirs[p] = true
	}
}

// DirExists implements api.System.
func (s *System) DirExists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[filepath.Clean(path)]
}

// WriteFile implements api.System. Each call appends one record.
func (s *System) WriteFile(path string, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	if !s.dirs[filepath.Dir(path)] {
		return 0, syscall.ENOENT
	}
	s.writes[path] = append(s.writes[path], string(data))
	if s.ShortWrites && len(data) > 0 {
		return len(data) - 1, nil
	}
	return len(data), nil
}

// Writes returns the records written to path.
func (s *System) Writes(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes[path]...)
}

// NiceOf returns the nice value recorded for tid.
func (s *System) NiceOf(tid api.ThreadID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nice[tid]
}
