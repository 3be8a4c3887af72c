package database

import (
	"context"
	"fmt"

	"github.com/multimart/multimart/backend/go-services/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the database. A blank URI
// yields (nil, nil) so callers fall back to in-memory stores. Caller should
// call db.Client().Disconnect(ctx).
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Database, error) {
	if cfg.URI == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client.Database(cfg.Database), nil
}
