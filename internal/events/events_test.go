package events

import (
	"context"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	r.got = append(r.got, ev)
	r.mu.Unlock()
}

func (r *recorder) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.got...)
}

func TestMemoryBus_OrderedPerClient(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()
	rec := &recorder{}
	other := &recorder{}

	unsub, err := bus.Subscribe(ctx, "c1", rec.add)
	require.NoError(t, err)
	defer unsub()
	unsubOther, err := bus.Subscribe(ctx, "c2", other.add)
	require.NoError(t, err)
	defer unsubOther()

	require.NoError(t, bus.Publish(ctx, Event{ClientID: "c1", Kind: SignedIn, IdentityID: "a"}))
	require.NoError(t, bus.Publish(ctx, Event{ClientID: "c1", Kind: SignedOut}))
	require.NoError(t, bus.Publish(ctx, Event{ClientID: "c1", Kind: SignedIn, IdentityID: "b"}))

	require.Eventually(t, func() bool { return len(rec.events()) == 3 }, time.Second, 5*time.Millisecond)
	got := rec.events()
	require.Equal(t, "a", got[0].IdentityID)
	require.Equal(t, SignedOut, got[1].Kind)
	require.Equal(t, "b", got[2].IdentityID)
	require.Empty(t, other.events())
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()
	rec := &recorder{}
	unsub, err := bus.Subscribe(ctx, "c1", rec.add)
	require.NoError(t, err)
	require.Equal(t, 1, bus.Subscribers("c1"))

	unsub()
	require.Equal(t, 0, bus.Subscribers("c1"))
	require.NoError(t, bus.Publish(ctx, Event{ClientID: "c1", Kind: SignedIn}))
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, rec.events())
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	bus := NewRedisBus(client, "")
	ctx := context.Background()
	rec := &recorder{}

	unsub, err := bus.Subscribe(ctx, "c1", rec.add)
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, bus.Publish(ctx, Event{ClientID: "c1", Kind: SignedIn, IdentityID: "id-1"}))
	require.NoError(t, bus.Publish(ctx, Event{ClientID: "c1", Kind: SignedOut}))

	require.Eventually(t, func() bool { return len(rec.events()) == 2 }, 2*time.Second, 10*time.Millisecond)
	got := rec.events()
	require.Equal(t, SignedIn, got[0].Kind)
	require.Equal(t, "id-1", got[0].IdentityID)
	require.Equal(t, SignedOut, got[1].Kind)
}
