package database

import (
	"context"
	"net"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/multimart/multimart/backend/go-services/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	host, port, err := net.SplitHostPort(m.Addr())
	require.NoError(t, err)

	c, err := ConnectRedis(context.Background(), config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()
	assert.NoError(t, c.Set(context.Background(), "k", "v", 0).Err())
	m.CheckGet(t, "k", "v")
}

func TestConnectRedis_Disabled(t *testing.T) {
	c, err := ConnectRedis(context.Background(), config.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestConnectMongo_Disabled(t *testing.T) {
	db, err := ConnectMongo(context.Background(), config.MongoDBConfig{})
	assert.NoError(t, err)
	assert.Nil(t, db)
}
