package authstate

import (
	"context"
	"testing"
	"time"

	"github.com/multimart/multimart/backend/go-services/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerReusesStorePerClient(t *testing.T) {
	gws := map[string]*fakeGateway{}
	m := NewManager(func(clientID string) identity.Gateway {
		gw := newFakeGateway()
		gws[clientID] = gw
		return gw
	}, policy)
	defer m.Close()

	a := m.Get("a")
	assert.Same(t, a, m.Get("a"))
	assert.NotSame(t, a, m.Get("b"))
	assert.Equal(t, 2, m.Len())

	_, err := a.WaitFor(withTimeout(t), func(s Snapshot) bool { return !s.IsLoading })
	require.NoError(t, err)
}

func TestManagerSweepEvictsIdle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(func(string) identity.Gateway { return newFakeGateway() }, policy)
	m.now = func() time.Time { return now }
	defer m.Close()

	var evicted []string
	m.OnEvict(func(id string) { evicted = append(evicted, id) })

	old := m.Get("old")
	now = now.Add(20 * time.Minute)
	m.Get("fresh")

	assert.Equal(t, 1, m.Sweep(10*time.Minute))
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, 1, m.Len())
	assert.NotSame(t, old, m.Get("old"), "evicted client gets a new store")
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	m := NewManager(func(string) identity.Gateway { return newFakeGateway() }, policy)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestManagerCapEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(func(string) identity.Gateway { return newFakeGateway() }, policy)
	m.now = func() time.Time { return now }
	m.SetMaxStores(2)
	defer m.Close()

	var evicted []string
	m.OnEvict(func(id string) { evicted = append(evicted, id) })

	m.Get("a")
	now = now.Add(time.Minute)
	m.Get("b")
	now = now.Add(time.Minute)
	m.Get("a") // a is now the most recent
	now = now.Add(time.Minute)
	m.Get("c")

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"b"}, evicted)
}

func TestManagerCapSkipsPinnedStores(t *testing.T) {
	m := NewManager(func(string) identity.Gateway { return newFakeGateway() }, policy)
	m.SetMaxStores(1)
	defer m.Close()

	pinned, release := m.Acquire("watcher")
	m.Get("other")
	assert.Same(t, pinned, m.Get("watcher"), "pinned store survives the cap")
	release()
}

func TestManagerSweepKeepsPinnedStores(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(func(string) identity.Gateway { return newFakeGateway() }, policy)
	m.now = func() time.Time { return now }
	defer m.Close()

	st, release := m.Acquire("stream")
	now = now.Add(time.Hour)
	assert.Equal(t, 0, m.Sweep(time.Minute))
	assert.Same(t, st, m.Get("stream"))

	release()
	release() // second call is a no-op
	now = now.Add(time.Hour)
	assert.Equal(t, 1, m.Sweep(time.Minute))
}
