package profiles

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/multimart/multimart/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository defines persistence operations for profiles, keyed by identity id.
// Get and SetFlags return (nil, nil) when no profile exists. Upsert creates
// the profile on first write and otherwise changes only the provided fields.
type Repository interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, userID, email string, f models.ProfileFields) (*models.Profile, error)
	SetFlags(ctx context.Context, userID string, flags models.ProfileFlags) (*models.Profile, error)
}

func newProfile(userID, email string, now time.Time) *models.Profile {
	return &models.Profile{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MemoryRepository keeps profiles in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]*models.Profile{}}
}

func (m *MemoryRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[userID].Clone(), nil
}

func (m *MemoryRepository) Upsert(ctx context.Context, userID, email string, f models.ProfileFields) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	p, ok := m.items[userID]
	if !ok {
		p = newProfile(userID, email, now)
		m.items[userID] = p
	}
	f.ApplyTo(p)
	p.UpdatedAt = now
	return p.Clone(), nil
}

func (m *MemoryRepository) SetFlags(ctx context.Context, userID string, flags models.ProfileFlags) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[userID]
	if !ok {
		return nil, nil
	}
	if flags.SellerVerified != nil {
		p.SellerVerified = *flags.SellerVerified
	}
	if flags.IsActive != nil {
		p.IsActive = *flags.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	return p.Clone(), nil
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) Upsert(ctx context.Context, userID, email string, f models.ProfileFields) (*models.Profile, error) {
	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	for k, v := range fieldsDoc(f) {
		set[k] = v
	}
	fresh := newProfile(userID, email, now)
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":            fresh.ID,
			"email":          email,
			"sellerVerified": false,
			"isActive":       true,
			"createdAt":      now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.Profile
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *MongoRepository) SetFlags(ctx context.Context, userID string, flags models.ProfileFlags) (*models.Profile, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if flags.SellerVerified != nil {
		set["sellerVerified"] = *flags.SellerVerified
	}
	if flags.IsActive != nil {
		set["isActive"] = *flags.IsActive
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Profile
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"userId": userID}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &updated, nil
}

// fieldsDoc maps the provided fields to their bson names, trimmed.
func fieldsDoc(f models.ProfileFields) bson.M {
	doc := bson.M{}
	add := func(k string, v *string) {
		if v != nil {
			doc[k] = strings.TrimSpace(*v)
		}
	}
	add("fullName", f.FullName)
	add("rollNumber", f.RollNumber)
	add("branch", f.Branch)
	add("year", f.Year)
	add("hostel", f.Hostel)
	add("bio", f.Bio)
	add("phone", f.Phone)
	add("avatarUrl", f.AvatarURL)
	return doc
}
