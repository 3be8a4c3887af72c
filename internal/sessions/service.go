package sessions

import (
	"context"
	"errors"
	"time"
)

var ErrNoClient = errors.New("client id required")

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	ttl  time.Duration
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{repo: r, ttl: ttl}
}

// Bind records identityID as signed in on clientID, replacing any previous binding.
func (s *Service) Bind(ctx context.Context, clientID, identityID string) (*Session, error) {
	if clientID == "" {
		return nil, ErrNoClient
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:         clientID,
		IdentityID: identityID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.repo.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve returns the live session for clientID, or nil when there is none.
func (s *Service) Resolve(ctx context.Context, clientID string) (*Session, error) {
	if clientID == "" {
		return nil, nil
	}
	sess, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(time.Now().UTC()) {
		// cleanup expired session
		_ = s.repo.Delete(ctx, clientID)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) Unbind(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}
	return s.repo.Delete(ctx, clientID)
}
