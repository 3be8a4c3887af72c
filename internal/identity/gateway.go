// Package identity is the credential gateway: the data-access boundary
// between the auth flow and the identity provider backend.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/multimart/multimart/backend/go-services/internal/accounts"
	"github.com/multimart/multimart/backend/go-services/internal/events"
	"github.com/multimart/multimart/backend/go-services/internal/models"
	"github.com/multimart/multimart/backend/go-services/internal/profiles"
	"github.com/multimart/multimart/backend/go-services/internal/sessions"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
)

// Gateway is the provider contract seen by one browser client. Every method
// fails with a *ProviderError.
type Gateway interface {
	CreateAccount(ctx context.Context, email, password string) error
	Authenticate(ctx context.Context, email, password string) error
	TerminateSession(ctx context.Context) error
	// CurrentIdentity resumes a prior provider session; nil when there is none.
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
	UpsertProfile(ctx context.Context, identityID string, f models.ProfileFields) (*models.Profile, error)
	// FetchProfile returns nil when the identity has no profile yet.
	FetchProfile(ctx context.Context, identityID string) (*models.Profile, error)
	// SubscribeAuthChanges invokes fn with the signed-in identity, or nil after
	// sign-out, each time the client's provider session changes.
	SubscribeAuthChanges(ctx context.Context, fn func(*models.Identity)) (unsubscribe func(), err error)
}

// Provider error codes.
const (
	CodeUserAlreadyExists  = "user_already_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeNotAuthenticated   = "not_authenticated"
	CodeForbidden          = "forbidden"
	CodeUnexpected         = "unexpected_failure"
)

// ProviderError is the provider-side failure, with a machine-readable code.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string     { return e.Message }
func (e *ProviderError) ErrorCode() string { return e.Code }
func (e *ProviderError) Unwrap() error     { return e.Err }

func providerError(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case errors.Is(err, accounts.ErrAlreadyRegistered):
		return &ProviderError{Code: CodeUserAlreadyExists, Message: err.Error(), Err: err}
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return &ProviderError{Code: CodeInvalidCredentials, Message: err.Error(), Err: err}
	case errors.Is(err, accounts.ErrEmailNotConfirmed):
		return &ProviderError{Code: CodeEmailNotConfirmed, Message: err.Error(), Err: err}
	}
	return &ProviderError{Code: CodeUnexpected, Message: err.Error(), Err: err}
}

// Backend bundles the provider services shared by all clients.
type Backend struct {
	Accounts *accounts.Service
	Sessions *sessions.Service
	Profiles *profiles.Service
	Bus      events.Bus
}

// For returns the gateway bound to one browser client.
func (b *Backend) For(clientID string) *Client {
	return &Client{backend: b, clientID: clientID}
}

// Client implements Gateway for a single client id.
type Client struct {
	backend  *Backend
	clientID string
}

var _ Gateway = (*Client)(nil)

func (c *Client) ClientID() string { return c.clientID }

func (c *Client) CreateAccount(ctx context.Context, email, password string) error {
	_, err := c.backend.Accounts.Register(ctx, email, password)
	return providerError(err)
}

func (c *Client) Authenticate(ctx context.Context, email, password string) error {
	id, err := c.backend.Accounts.Authenticate(ctx, email, password)
	if err != nil {
		return providerError(err)
	}
	if _, err := c.backend.Sessions.Bind(ctx, c.clientID, id.ID); err != nil {
		return providerError(err)
	}
	c.publish(ctx, events.Event{ClientID: c.clientID, Kind: events.SignedIn, IdentityID: id.ID})
	return nil
}

func (c *Client) TerminateSession(ctx context.Context) error {
	if err := c.backend.Sessions.Unbind(ctx, c.clientID); err != nil {
		return providerError(err)
	}
	c.publish(ctx, events.Event{ClientID: c.clientID, Kind: events.SignedOut})
	return nil
}

// publish failures are logged only; the session binding is already stored
// and a later resume picks it up.
func (c *Client) publish(ctx context.Context, ev events.Event) {
	ev.At = time.Now().UTC()
	if err := c.backend.Bus.Publish(ctx, ev); err != nil {
		logger.Warnf("identity: publish %s for client %s: %v", ev.Kind, ev.ClientID, err)
	}
}

func (c *Client) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	sess, err := c.backend.Sessions.Resolve(ctx, c.clientID)
	if err != nil {
		return nil, providerError(err)
	}
	if sess == nil {
		return nil, nil
	}
	id, err := c.backend.Accounts.GetByID(ctx, sess.IdentityID)
	if err != nil {
		return nil, providerError(err)
	}
	return id, nil
}

// UpsertProfile only accepts writes for the identity signed in on this client.
func (c *Client) UpsertProfile(ctx context.Context, identityID string, f models.ProfileFields) (*models.Profile, error) {
	id, err := c.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, &ProviderError{Code: CodeNotAuthenticated, Message: "Auth session missing"}
	}
	if id.ID != identityID {
		return nil, &ProviderError{Code: CodeForbidden, Message: "new row violates row-level security policy for table \"profiles\""}
	}
	p, err := c.backend.Profiles.Upsert(ctx, identityID, id.Email, f)
	if err != nil {
		return nil, providerError(err)
	}
	return p, nil
}

func (c *Client) FetchProfile(ctx context.Context, identityID string) (*models.Profile, error) {
	p, err := c.backend.Profiles.Get(ctx, identityID)
	if err != nil {
		return nil, providerError(err)
	}
	return p, nil
}

func (c *Client) SubscribeAuthChanges(ctx context.Context, fn func(*models.Identity)) (func(), error) {
	unsub, err := c.backend.Bus.Subscribe(ctx, c.clientID, func(ev events.Event) {
		if ev.Kind != events.SignedIn {
			fn(nil)
			return
		}
		// background: the subscription outlives the request that created it
		id, err := c.backend.Accounts.GetByID(context.Background(), ev.IdentityID)
		if err != nil {
			logger.Errorf("identity: resolve %s after sign-in: %v", ev.IdentityID, err)
			return
		}
		fn(id)
	})
	if err != nil {
		return nil, providerError(err)
	}
	return unsub, nil
}
