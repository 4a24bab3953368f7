//go:build linux

package concurrency

import (
	"runtime"
	"testing"

	"github.com/momentics/hioload-thread/api"
)

// BenchmarkCurrentIDBound measures the cached lookup on a bound thread.
// The slot lookup walks the goroutine's stack, so compare it against
// BenchmarkGettid before relying on it in hot paths.
func BenchmarkCurrentIDBound(b *testing.B) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	c := NewIdentityCache(NewHostSystem(), NewForkRegistry())
	c.Bind(func() {
		var tid api.ThreadID
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			tid = c.CurrentID()
		}
		if tid == api.InvalidThreadID {
			b.Fatal("no thread id")
		}
	})
}

func BenchmarkGettid(b *testing.B) {
	sys := NewHostSystem()
	var tid api.ThreadID
	for i := 0; i < b.N; i++ {
		tid = sys.Gettid()
	}
	if tid == api.InvalidThreadID {
		b.Fatal("no thread id")
	}
}
