package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRevocations_RevokeAndExpire(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	rv := NewRevocations(redis.NewClient(&redis.Options{Addr: m.Addr()}))

	ctx := context.Background()
	require.NoError(t, rv.Revoke(ctx, "access-token-1", 2*time.Second))

	ok, err := rv.IsRevoked(ctx, "access-token-1")
	require.NoError(t, err)
	require.True(t, ok)

	// advance past TTL
	m.FastForward(3 * time.Second)

	ok, err = rv.IsRevoked(ctx, "access-token-1")
	require.NoError(t, err)
	require.False(t, ok)
}

// no client configured: everything is a no-op
func TestRevocations_NoClient(t *testing.T) {
	rv := NewRevocations(nil)
	ctx := context.Background()
	require.NoError(t, rv.Revoke(ctx, "t", time.Second))
	ok, err := rv.IsRevoked(ctx, "t")
	require.NoError(t, err)
	require.False(t, ok)

	var nilRv *Revocations
	ok, err = nilRv.IsRevoked(ctx, "t")
	require.NoError(t, err)
	require.False(t, ok)
}
