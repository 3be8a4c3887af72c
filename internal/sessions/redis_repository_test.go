package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_PutGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:")

	ctx := context.Background()
	s := &Session{
		ID:         "client-1",
		IdentityID: "id-1",
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(5 * time.Second),
	}

	require.NoError(t, repo.Put(ctx, s))
	require.True(t, m.Exists("test:session:client-1"))

	got, err := repo.Get(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, s.IdentityID, got.IdentityID)

	// rebinding replaces the identity
	s.IdentityID = "id-2"
	require.NoError(t, repo.Put(ctx, s))
	got, err = repo.Get(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, "id-2", got.IdentityID)

	require.NoError(t, repo.Delete(ctx, "client-1"))
	got2, err := repo.Get(ctx, "client-1")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:")

	ctx := context.Background()
	s := &Session{
		ID:         "client-2",
		IdentityID: "id-2",
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(1 * time.Second),
	}

	require.NoError(t, repo.Put(ctx, s))

	// visible immediately
	got, err := repo.Get(ctx, "client-2")
	require.NoError(t, err)
	require.NotNil(t, got)

	// advance miniredis clock past TTL
	m.FastForward(2 * time.Second)

	got2, err := repo.Get(ctx, "client-2")
	require.NoError(t, err)
	require.Nil(t, got2)
}
