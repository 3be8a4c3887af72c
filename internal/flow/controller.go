// Package flow drives the sign-up / sign-in / profile completion steps for
// one browser client.
package flow

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/multimart/multimart/backend/go-services/internal/auth"
	"github.com/multimart/multimart/backend/go-services/internal/authstate"
	"github.com/multimart/multimart/backend/go-services/internal/models"
)

// Step is the form the auth page shows.
type Step string

const (
	StepAuth    Step = "auth"
	StepVerify  Step = "verify"
	StepProfile Step = "profile"
)

// Mode selects sign-in or sign-up on the credentials step.
type Mode string

const (
	ModeSignIn Mode = "signin"
	ModeSignUp Mode = "signup"
)

// Query values understood by Enter.
const (
	QueryModeSignUp          = "signup"
	QueryModeCompleteProfile = "complete-profile"
)

// ErrPending is returned when a submission arrives while another one is
// still outstanding.
var ErrPending = errors.New("a submission is already in progress")

// Session is the part of the session state the controller reads and drives.
type Session interface {
	Current() authstate.Snapshot
	Changed() <-chan struct{}
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) error
	UpdateProfile(ctx context.Context, f models.ProfileFields) error
	WaitForIdentity(ctx context.Context, email string) (authstate.Snapshot, error)
}

// Query is the URL-level input to the flow.
type Query struct {
	Mode            string
	CompleteProfile bool
	Redirect        string
}

// ViewError is an inline form error.
type ViewError struct {
	Kind    auth.Kind `json:"kind"`
	Message string    `json:"message"`
}

// View is what the auth page renders.
type View struct {
	Step    Step       `json:"step"`
	Mode    Mode       `json:"mode"`
	Email   string     `json:"email,omitempty"`
	Error   *ViewError `json:"error,omitempty"`
	Pending bool       `json:"pending"`
	// AwaitingSession is set after a successful sign-in whose identity has
	// not reached the session yet.
	AwaitingSession bool   `json:"awaiting_session,omitempty"`
	Exit            bool   `json:"exit"`
	ExitTo          string `json:"exit_to,omitempty"`
	ReturnTo        string `json:"return_to,omitempty"`
	SignedIn        bool   `json:"signed_in"`
	ProfileComplete bool   `json:"profile_complete"`
}

// Config for a Controller.
type Config struct {
	Validator auth.Validator
	HomePath  string
	// SignInWait bounds how long SubmitCredentials waits for a signed-in
	// identity to reach the session. Zero means 3s.
	SignInWait time.Duration
}

// ProfileForm is the profile completion submission.
type ProfileForm struct {
	FullName   string `json:"full_name"`
	RollNumber string `json:"roll_number"`
	Branch     string `json:"branch"`
	Year       string `json:"year"`
	Hostel     string `json:"hostel"`
	Bio        string `json:"bio"`
	Phone      string `json:"phone"`
}

// Fields returns the form as a profile update. Blank optional fields are
// left unset.
func (f ProfileForm) Fields() models.ProfileFields {
	req := func(v string) *string { v = strings.TrimSpace(v); return &v }
	opt := func(v string) *string {
		if v = strings.TrimSpace(v); v == "" {
			return nil
		}
		return &v
	}
	return models.ProfileFields{
		FullName:   req(f.FullName),
		RollNumber: req(f.RollNumber),
		Branch:     req(f.Branch),
		Year:       req(f.Year),
		Hostel:     req(f.Hostel),
		Bio:        opt(f.Bio),
		Phone:      opt(f.Phone),
	}
}

func (f ProfileForm) complete() bool {
	for _, v := range []string{f.FullName, f.RollNumber, f.Branch, f.Year, f.Hostel} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Controller is the flow state machine of one client. All methods are safe
// for concurrent use; at most one submission runs at a time.
type Controller struct {
	session Session
	cfg     Config

	mu               sync.Mutex
	step             Step
	mode             Mode
	email            string
	err              *ViewError
	pending          bool
	awaiting         bool
	profileRequested bool
	returnTo         string
}

// NewController starts a flow on the credentials step in sign-in mode.
func NewController(s Session, cfg Config) *Controller {
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	if cfg.SignInWait <= 0 {
		cfg.SignInWait = 3 * time.Second
	}
	return &Controller{session: s, cfg: cfg, step: StepAuth, mode: ModeSignIn}
}

// Enter (re)starts the flow from the URL query.
func (c *Controller) Enter(q Query) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeSignIn
	if q.Mode == QueryModeSignUp {
		c.mode = ModeSignUp
	}
	c.profileRequested = q.CompleteProfile || q.Mode == QueryModeCompleteProfile
	c.step = StepAuth
	c.err = nil
	c.awaiting = false
	c.returnTo = SafeReturnPath(q.Redirect)
	return c.viewLocked(c.session.Current())
}

// View evaluates the flow against the current session.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(c.session.Current())
}

// viewLocked applies the reactive rules. Caller holds c.mu.
func (c *Controller) viewLocked(snap authstate.Snapshot) View {
	complete := snap.IsProfileComplete()
	if snap.SignedIn() {
		c.awaiting = false
		if !complete && (c.profileRequested || c.step == StepAuth && c.mode == ModeSignIn) {
			c.step = StepProfile
		}
	} else if c.step == StepProfile {
		c.step = StepAuth
	}

	v := View{
		Step:            c.step,
		Mode:            c.mode,
		Email:           c.email,
		Error:           c.err,
		Pending:         c.pending,
		AwaitingSession: c.awaiting,
		ReturnTo:        c.returnTo,
		SignedIn:        snap.SignedIn(),
		ProfileComplete: complete,
	}
	if snap.SignedIn() && complete {
		v.Exit = true
		v.ExitTo = c.cfg.HomePath
	}
	return v
}

// begin takes the submission slot.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return ErrPending
	}
	c.pending = true
	c.err = nil
	return nil
}

func (c *Controller) fail(err error) {
	var ae *auth.Error
	if errors.As(err, &ae) {
		c.err = &ViewError{Kind: ae.Kind, Message: ae.Message}
		return
	}
	c.err = &ViewError{Kind: auth.Unknown, Message: err.Error()}
}

// SubmitCredentials validates locally and then signs up or signs in
// depending on the mode. Local validation failures never reach the session.
func (c *Controller) SubmitCredentials(ctx context.Context, cred auth.Credentials) (View, error) {
	if err := c.begin(); err != nil {
		return c.View(), err
	}
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()

	var err error
	if verr := c.cfg.Validator.Validate(cred, mode == ModeSignUp); verr != nil {
		err = verr
	} else if mode == ModeSignUp {
		err = c.session.SignUp(ctx, cred.Email, cred.Password)
	} else {
		err = c.session.SignIn(ctx, cred.Email, cred.Password)
		if err == nil {
			c.awaitIdentity(ctx, cred.Email)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if err != nil {
		c.fail(err)
		return c.viewLocked(c.session.Current()), err
	}
	if mode == ModeSignUp {
		c.step = StepVerify
		c.email = strings.TrimSpace(cred.Email)
	}
	return c.viewLocked(c.session.Current()), nil
}

// awaitIdentity gives the auth-change event a bounded chance to arrive
// before the response is rendered.
func (c *Controller) awaitIdentity(ctx context.Context, email string) {
	c.mu.Lock()
	c.awaiting = true
	c.mu.Unlock()
	wctx, cancel := context.WithTimeout(ctx, c.cfg.SignInWait)
	defer cancel()
	_, _ = c.session.WaitForIdentity(wctx, email)
}

// SetMode switches between sign-in and sign-up and returns to credential entry.
func (c *Controller) SetMode(m Mode) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m != ModeSignUp {
		m = ModeSignIn
	}
	c.mode = m
	c.step = StepAuth
	c.err = nil
	return c.viewLocked(c.session.Current())
}

// BackToAuth leaves the verification wait. The user signs in again after
// following the emailed link.
func (c *Controller) BackToAuth() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepVerify {
		c.step = StepAuth
		c.mode = ModeSignIn
		c.err = nil
	}
	return c.viewLocked(c.session.Current())
}

// SubmitProfile completes the profile. All five required fields must be
// non-blank before anything is sent.
func (c *Controller) SubmitProfile(ctx context.Context, form ProfileForm) (View, error) {
	if err := c.begin(); err != nil {
		return c.View(), err
	}
	var err error
	if !form.complete() {
		err = auth.ErrProfileIncomplete
	} else {
		err = c.session.UpdateProfile(ctx, form.Fields())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if err != nil {
		c.fail(err)
	}
	return c.viewLocked(c.session.Current()), err
}

// Watch calls fn with the view now and after every session change, until
// ctx is done or the view exits the flow.
func (c *Controller) Watch(ctx context.Context, fn func(View)) {
	for {
		ch := c.session.Changed()
		v := c.View()
		fn(v)
		if v.Exit {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}
	}
}

// SafeReturnPath keeps only same-origin absolute paths.
func SafeReturnPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return u.RequestURI()
}
