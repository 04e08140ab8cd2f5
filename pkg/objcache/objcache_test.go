package objcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func newMock() *mockTimeProvider {
	return &mockTimeProvider{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestCache_SetGetDelete(t *testing.T) {
	c := New()
	c.Set("user", map[string]any{"name": "ann"})

	v, ok := c.Get("user")
	require.True(t, ok)
	require.Equal(t, map[string]any{"name": "ann"}, v)
	require.True(t, c.Exists("user"))

	c.Delete("user")
	_, ok = c.Get("user")
	require.False(t, ok)
	require.False(t, c.Exists("user"))
}

func TestCache_DefaultExpiry(t *testing.T) {
	tp := newMock()
	c := New(WithTimeProvider(tp))
	c.Set("a", 1)

	tp.Advance(DefaultTTL - time.Second)
	require.True(t, c.Exists("a"))

	tp.Advance(time.Second)
	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	tp := newMock()
	c := New(WithTimeProvider(tp), WithTTL(0))
	c.Set("a", 1)
	tp.Advance(1000 * time.Hour)
	require.True(t, c.Exists("a"))
}

func TestCache_Sweep(t *testing.T) {
	tp := newMock()
	c := New(WithTimeProvider(tp))
	c.SetTTL("short", 1, time.Minute)
	c.SetTTL("long", 2, time.Hour)

	tp.Advance(2 * time.Minute)
	require.Equal(t, 1, c.Sweep())
	require.False(t, c.Exists("short"))
	require.True(t, c.Exists("long"))
}

func TestCache_CapacityEvictsLeastRecentlyVisited(t *testing.T) {
	tp := newMock()
	c := New(WithTimeProvider(tp), WithCapacity(2))

	c.Set("a", 1)
	tp.Advance(time.Second)
	c.Set("b", 2)
	tp.Advance(time.Second)
	_, _ = c.Get("a") // a теперь свежее b
	tp.Advance(time.Second)
	c.Set("c", 3)

	require.Equal(t, 2, c.Len())
	require.True(t, c.Exists("a"))
	require.False(t, c.Exists("b"))
	require.True(t, c.Exists("c"))
}

func TestCache_LastVisit(t *testing.T) {
	tp := newMock()
	c := New(WithTimeProvider(tp))
	c.Set("a", 1)
	tp.Advance(time.Minute)
	_, _ = c.Get("a")

	at, ok := c.LastVisit("a")
	require.True(t, ok)
	require.True(t, at.Equal(tp.Now()))
}

func TestCache_RunStopsOnCancel(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
