package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(now func() time.Time) *Registry {
	return NewRegistry(func() *State {
		return New(&fakeFetcher{}, &fakeAnalyzer{}, Options{Now: now})
	}, nil)
}

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := newTestRegistry(nil)

	assert.Nil(t, reg.Get("user123", "tab-1"))
	a := reg.GetOrCreate("user123", "tab-1")
	b := reg.GetOrCreate("user123", "tab-1")
	c := reg.GetOrCreate("user123", "tab-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_RemoveClosesSubscriptions(t *testing.T) {
	reg := newTestRegistry(nil)
	s := reg.GetOrCreate("user123", "tab-1")
	other := reg.GetOrCreate("user123", "tab-2")
	ch, _ := s.Subscribe(1)

	reg.Remove("user123", "tab-1")
	_, ok := <-ch
	assert.False(t, ok)
	assert.Nil(t, reg.Get("user123", "tab-1"))
	assert.Same(t, other, reg.Get("user123", "tab-2"))

	reg.Remove("user123", "missing")
	reg.Remove("nobody", "tab-1")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SweepIdle(t *testing.T) {
	var mu sync.Mutex
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	reg := newTestRegistry(now)
	stale := reg.GetOrCreate("u1", "tab-1")

	mu.Lock()
	clock = clock.Add(20 * time.Minute)
	mu.Unlock()
	fresh := reg.GetOrCreate("u2", "tab-1")
	fresh.Toggle()

	removed := reg.SweepIdle(15*time.Minute, now())
	assert.Equal(t, 1, removed)
	assert.Nil(t, reg.Get("u1", "tab-1"))
	assert.Same(t, fresh, reg.Get("u2", "tab-1"))
	_ = stale
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := newTestRegistry(nil)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			reg.GetOrCreate("concurrentUser", "tab-"+strconv.Itoa(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			reg.Get("concurrentUser", "tab-"+strconv.Itoa(i))
		}
	}()
	wg.Wait()
	assert.Equal(t, 200, reg.Len())
}

func TestStartIdleSweeper_StopsOnCancel(t *testing.T) {
	reg := newTestRegistry(nil)
	reg.GetOrCreate("u1", "tab-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := StartIdleSweeper(ctx, reg, -time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRegistry_SweepIdleKeepsSubscribedSessions(t *testing.T) {
	var mu sync.Mutex
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}
	reg := NewRegistry(func() *State {
		return New(&fakeFetcher{items: items(1, 2)}, &fakeAnalyzer{}, Options{Now: now})
	}, nil)

	s := reg.GetOrCreate("u1", "tab-1")
	require.NoError(t, s.Connect(context.Background(), "https://example.com"))
	ch, cancel := s.Subscribe(1)
	assert.Equal(t, 1, s.Subscribers())

	advance(31 * time.Minute)
	assert.Zero(t, reg.SweepIdle(30*time.Minute, now()))
	assert.Same(t, s, reg.GetOrCreate("u1", "tab-1"))
	assert.True(t, s.Snapshot().Site.Connected)

	// Idle time restarts when the last subscriber leaves.
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, s.Subscribers())
	advance(10 * time.Minute)
	assert.Zero(t, reg.SweepIdle(30*time.Minute, now()))

	advance(21 * time.Minute)
	assert.Equal(t, 1, reg.SweepIdle(30*time.Minute, now()))
	assert.Nil(t, reg.Get("u1", "tab-1"))
}
