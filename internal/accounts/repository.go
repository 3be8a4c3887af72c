package accounts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/multimart/multimart/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository defines persistence operations for identities.
// Lookups return (nil, nil) when nothing matches.
type Repository interface {
	Create(ctx context.Context, id *models.Identity) error
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	MarkVerified(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps identities in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Identity
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]*models.Identity{}, byEmail: map[string]string{}}
}

func (m *MemoryRepository) Create(ctx context.Context, id *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(id.Email)
	if _, ok := m.byEmail[email]; ok {
		return ErrAlreadyRegistered
	}
	cp := *id
	m.byID[id.ID] = &cp
	m.byEmail[email] = id.ID
	return nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.byID[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	m.mu.RLock()
	id, ok := m.byEmail[strings.ToLower(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return nil
	}
	i.EmailVerified = true
	i.ConfirmedAt = &at
	i.UpdatedAt = at
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byID[id]; ok {
		delete(m.byEmail, strings.ToLower(i.Email))
		delete(m.byID, id)
	}
	return nil
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates the repository and ensures a unique email index.
func NewMongoRepository(ctx context.Context, col *mongo.Collection) (*MongoRepository, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoRepository{col: col}, nil
}

func (r *MongoRepository) Create(ctx context.Context, id *models.Identity) error {
	_, err := r.col.InsertOne(ctx, id)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyRegistered
	}
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Identity, error) {
	var i models.Identity
	if err := r.col.FindOne(ctx, filter).Decode(&i); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

func (r *MongoRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"emailVerified": true,
		"confirmedAt":   at,
		"updatedAt":     at,
	}})
	return err
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
