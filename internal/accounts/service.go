package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/multimart/multimart/backend/go-services/internal/mail"
	"github.com/multimart/multimart/backend/go-services/internal/models"
	"github.com/multimart/multimart/backend/go-services/internal/tokens"
)

var (
	ErrAlreadyRegistered  = errors.New("User already registered")
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrInvalidToken       = errors.New("verification link is invalid or has expired")
)

// Options configures verification link issuance.
type Options struct {
	Secret    string
	VerifyTTL time.Duration
	// PublicURL is the externally visible base, e.g. https://mart.example.
	PublicURL string
	Mailer    mail.Sender
}

// Service encapsulates account registration and password checks
type Service struct {
	repo Repository
	opts Options
	now  func() time.Time
}

func NewService(r Repository, opts Options) *Service {
	if opts.Mailer == nil {
		opts.Mailer = mail.LogSender{}
	}
	if opts.VerifyTTL <= 0 {
		opts.VerifyTTL = 24 * time.Hour
	}
	return &Service{repo: r, opts: opts, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates an unverified identity and sends the verification link.
// The password policy is enforced by the caller.
func (s *Service) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	id := &models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	link, err := s.verificationLink(id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, id); err != nil {
		return nil, err
	}
	if err := s.opts.Mailer.SendVerification(ctx, id.Email, link); err != nil {
		// the address must stay free for a retry
		if derr := s.repo.Delete(ctx, id.ID); derr != nil {
			return nil, fmt.Errorf("send verification: %w (rollback: %v)", err, derr)
		}
		return nil, fmt.Errorf("send verification: %w", err)
	}
	return id.Public(), nil
}

func (s *Service) verificationLink(id *models.Identity) (string, error) {
	tok, err := tokens.GenerateVerificationToken(s.opts.Secret, id.ID, id.Email, s.opts.VerifyTTL)
	if err != nil {
		return "", fmt.Errorf("issue verification token: %w", err)
	}
	return s.opts.PublicURL + "/auth/confirm?token=" + url.QueryEscape(tok), nil
}

// Authenticate checks the password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	id, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if id == nil {
		// burn the same bcrypt work as a real comparison
		_ = VerifyPassword(dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(id.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !id.EmailVerified {
		return nil, ErrEmailNotConfirmed
	}
	return id.Public(), nil
}

// ConfirmEmail marks the identity named by a verification token as verified.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*models.Identity, error) {
	sub, err := tokens.ParseVerificationToken(s.opts.Secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id, err := s.repo.GetByID(ctx, sub)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, ErrInvalidToken
	}
	if !id.EmailVerified {
		if err := s.repo.MarkVerified(ctx, id.ID, s.now()); err != nil {
			return nil, err
		}
		id.EmailVerified = true
	}
	return id.Public(), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	i, err := s.repo.GetByID(ctx, id)
	if err != nil || i == nil {
		return nil, err
	}
	return i.Public(), nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
