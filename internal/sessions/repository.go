package sessions

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides session persistence operations.
// Put replaces any session already stored for the same client.
type Repository interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, clientID string) (*Session, error)
	Delete(ctx context.Context, clientID string) error
}

// MemoryRepository is the single-process fallback when Redis and Mongo are absent.
type MemoryRepository struct {
	mu    sync.Mutex
	items map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]Session{}}
}

func (m *MemoryRepository) Put(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = *s
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, clientID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[clientID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, clientID)
	return nil
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Put(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(7 * 24 * time.Hour)
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.ID}, s, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) Get(ctx context.Context, clientID string) (*Session, error) {
	var s Session
	if err := r.col.FindOne(ctx, bson.M{"_id": clientID}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) Delete(ctx context.Context, clientID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": clientID})
	return err
}
