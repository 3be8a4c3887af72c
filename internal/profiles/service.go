package profiles

import (
	"context"
	"errors"

	"github.com/multimart/multimart/backend/go-services/internal/models"
)

var ErrNoIdentity = errors.New("identity id required")

// Service encapsulates profile business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Get returns the profile for the identity, or nil when none exists yet.
func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	return s.repo.Get(ctx, userID)
}

// Upsert writes the provided fields, creating the profile when absent.
func (s *Service) Upsert(ctx context.Context, userID, email string, f models.ProfileFields) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	return s.repo.Upsert(ctx, userID, email, f)
}

// SetFlags applies administrative flags. Returns nil when the profile is missing.
func (s *Service) SetFlags(ctx context.Context, userID string, flags models.ProfileFlags) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	return s.repo.SetFlags(ctx, userID, flags)
}
