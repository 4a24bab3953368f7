package concurrency

import (
	"testing"

	"github.com/momentics/hioload-thread/api"
	"github.com/momentics/hioload-thread/fake"
	"github.com/stretchr/testify/assert"
)

func TestCurrentIDUnboundQueriesEveryTime(t *testing.T) {
	sys := fake.NewSystem()
	c := NewIdentityCache(sys, NewForkRegistry())

	assert.Equal(t, api.ThreadID(1001), c.CurrentID())
	assert.Equal(t, api.ThreadID(1001), c.CurrentID())
	assert.Equal(t, int64(2), sys.GettidCalls())
}

func TestCurrentIDCachedWithinBoundThread(t *testing.T) {
	sys := fake.NewSystem()
	c := NewIdentityCache(sys, NewForkRegistry())

	c.Bind(func() {
		first := c.CurrentID()
		second := c.CurrentID()
		assert.Equal(t, first, second)
		if !dcheckEnabled {
			assert.Equal(t, int64(1), sys.GettidCalls())
		}
	})
}

func TestForkHookInvalidatesCallingThread(t *testing.T) {
	sys := fake.NewSystem()
	forks := NewForkRegistry()
	c := NewIdentityCache(sys, forks)
	assert.Equal(t, 1, forks.Len())

	c.Bind(func() {
		assert.Equal(t, api.ThreadID(1001), c.CurrentID())
		// The child of a fork runs with a new tid.
		sys.Tid = 2002
		forks.AfterForkChild()
		assert.Equal(t, api.ThreadID(2002), c.CurrentID())
		assert.Equal(t, api.ThreadID(2002), c.CurrentID())
	})
}

func TestBoundThreadsKeepSeparateSlots(t *testing.T) {
	sys := fake.NewSystem()
	c := NewIdentityCache(sys, NewForkRegistry())

	var got []api.ThreadID
	for _, tid := range []api.ThreadID{100, 200} {
		sys.Tid = tid
		c.Bind(func() {
			got = append(got, c.CurrentID(), c.CurrentID())
		})
	}
	assert.Equal(t, []api.ThreadID{100, 100, 200, 200}, got)
	if !dcheckEnabled {
		assert.Equal(t, int64(2), sys.GettidCalls())
	}
}

func TestProcessForkRegistryIsSingleton(t *testing.T) {
	assert.Same(t, ProcessForkRegistry(), ProcessForkRegistry())
}

func TestPinnedIDMatchesCurrentID(t *testing.T) {
	sys := fake.NewSystem()
	c := NewIdentityCache(sys, NewForkRegistry())

	c.Bind(func() {
		assert.Equal(t, api.ThreadID(1001), c.PinnedID())
		assert.Equal(t, c.CurrentID(), c.PinnedID())
	})

	done := make(chan api.ThreadID)
	go func() { done <- c.PinnedID() }()
	assert.Equal(t, api.ThreadID(1001), <-done)
}
