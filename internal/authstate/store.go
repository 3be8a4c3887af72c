// Package authstate holds the per-client session state: who is signed in,
// their profile, and whether the initial resume is still running.
//
// The state is eventually consistent. A successful SignIn returns before the
// identity shows up; the identity arrives through the auth-change
// subscription. Callers that need it must wait via WaitFor or Changed.
package authstate

import (
	"context"
	"strings"
	"sync"

	"github.com/multimart/multimart/backend/go-services/internal/auth"
	"github.com/multimart/multimart/backend/go-services/internal/identity"
	"github.com/multimart/multimart/backend/go-services/internal/models"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
	"github.com/multimart/multimart/backend/go-services/pkg/metrics"
)

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Identity  *models.Identity `json:"identity"`
	Profile   *models.Profile  `json:"profile"`
	IsLoading bool             `json:"is_loading"`
}

// SignedIn reports whether an identity is present.
func (s Snapshot) SignedIn() bool { return s.Identity != nil }

// IsProfileComplete is derived from the profile on every call.
func (s Snapshot) IsProfileComplete() bool { return s.Profile.IsComplete() }

// Store is the session state of one browser client.
//
// Writers: the auth-change subscription, the local patch after a successful
// UpdateProfile, and the local clear in SignOut.
type Store struct {
	gw     identity.Gateway
	policy auth.DomainPolicy

	mu      sync.Mutex
	snap    Snapshot
	changed chan struct{}
	// authEpoch increments on every identity change; a profile fetch started
	// under an older epoch is discarded.
	authEpoch uint64
	// profileRev increments on every local profile write.
	profileRev uint64
	unsub      func()
	closed     bool
}

// NewStore returns a store in the loading state. Call Start to resume.
func NewStore(gw identity.Gateway, policy auth.DomainPolicy) *Store {
	return &Store{
		gw:      gw,
		policy:  policy,
		snap:    Snapshot{IsLoading: true},
		changed: make(chan struct{}),
	}
}

// Start subscribes to auth changes and then resumes any prior provider
// session. IsLoading stays true until the resume attempt has finished.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.authEpoch
	s.mu.Unlock()

	unsub, err := s.gw.SubscribeAuthChanges(ctx, s.onAuthChange)
	if err != nil {
		s.finishLoading()
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsub = unsub
	s.mu.Unlock()

	id, err := s.gw.CurrentIdentity(ctx)
	if err != nil {
		logger.Warnf("authstate: resume failed: %v", err)
		s.finishLoading()
		return err
	}
	var profile *models.Profile
	if id != nil {
		profile = s.fetchProfile(ctx, id.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authEpoch == epoch {
		s.snap.Identity = id
		s.snap.Profile = profile
	}
	s.snap.IsLoading = false
	s.notifyLocked()
	return nil
}

func (s *Store) finishLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.IsLoading {
		s.snap.IsLoading = false
		s.notifyLocked()
	}
}

func (s *Store) fetchProfile(ctx context.Context, identityID string) *models.Profile {
	p, err := s.gw.FetchProfile(ctx, identityID)
	if err != nil {
		logger.Warnf("authstate: fetch profile %s: %v", identityID, err)
		return nil
	}
	return p
}

// onAuthChange is the subscription callback. Identity and profile are
// published together so readers never see a signed-in identity whose
// profile has not been loaded yet.
func (s *Store) onAuthChange(id *models.Identity) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.authEpoch++
	epoch, rev := s.authEpoch, s.profileRev
	if id == nil {
		s.snap.Identity = nil
		s.snap.Profile = nil
		s.snap.IsLoading = false
		s.notifyLocked()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	profile := s.fetchProfile(context.Background(), id.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.authEpoch != epoch {
		return
	}
	keepLocal := s.profileRev != rev && s.snap.Profile != nil && s.snap.Profile.UserID == id.ID
	s.snap.Identity = id
	if !keepLocal {
		s.snap.Profile = profile
	}
	s.snap.IsLoading = false
	s.notifyLocked()
}

// notifyLocked wakes everyone waiting on Changed. Caller holds s.mu.
func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Current returns the latest known state.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() Snapshot {
	return Snapshot{
		Identity:  s.snap.Identity.Public(),
		Profile:   s.snap.Profile.Clone(),
		IsLoading: s.snap.IsLoading,
	}
}

// IsProfileComplete reports whether the current profile has every
// required field.
func (s *Store) IsProfileComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Profile.IsComplete()
}

// Changed returns a channel closed on the next state change.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// WaitFor blocks until pred holds for the current state or ctx is done.
func (s *Store) WaitFor(ctx context.Context, pred func(Snapshot) bool) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap, ch := s.copyLocked(), s.changed
		s.mu.Unlock()
		if pred(snap) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// WaitForIdentity waits until the session reflects the identity that signed
// in with email.
func (s *Store) WaitForIdentity(ctx context.Context, email string) (Snapshot, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.WaitFor(ctx, func(snap Snapshot) bool {
		return snap.Identity != nil && strings.EqualFold(snap.Identity.Email, email)
	})
}

// SignUp creates an account. The session does not change: the new identity
// stays unverified until the emailed link is followed.
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	if !s.policy.Allows(email) {
		return record("sign_up", s.policy.DomainError())
	}
	return record("sign_up", auth.Translate(s.gw.CreateAccount(ctx, email, password)))
}

// SignIn authenticates. On success the identity is delivered later through
// the auth-change subscription.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	return record("sign_in", auth.Translate(s.gw.Authenticate(ctx, email, password)))
}

// SignOut terminates the provider session. Local state is cleared even when
// the gateway fails; the gateway error is still returned.
func (s *Store) SignOut(ctx context.Context) error {
	err := s.gw.TerminateSession(ctx)
	s.mu.Lock()
	s.authEpoch++
	s.profileRev++
	s.snap.Identity = nil
	s.snap.Profile = nil
	s.snap.IsLoading = false
	s.notifyLocked()
	s.mu.Unlock()
	if err != nil {
		logger.Warnf("authstate: sign-out gateway failure, cleared locally: %v", err)
	}
	return record("sign_out", auth.Translate(err))
}

// UpdateProfile upserts the profile of the signed-in identity and patches
// the local projection before returning.
func (s *Store) UpdateProfile(ctx context.Context, f models.ProfileFields) error {
	s.mu.Lock()
	id := s.snap.Identity
	s.mu.Unlock()
	if id == nil {
		return record("update_profile", auth.ErrNotAuthenticated)
	}

	p, err := s.gw.UpsertProfile(ctx, id.ID, f)
	if err != nil {
		return record("update_profile", auth.Translate(err))
	}

	s.mu.Lock()
	if s.snap.Identity != nil && s.snap.Identity.ID == id.ID {
		s.profileRev++
		s.snap.Profile = p
		s.notifyLocked()
	}
	s.mu.Unlock()
	return record("update_profile", nil)
}

// Close drops the auth-change subscription. The store keeps its last state.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func record(op string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = string(auth.KindOf(err))
	}
	metrics.AuthOperations.WithLabelValues(op, outcome).Inc()
	return err
}
