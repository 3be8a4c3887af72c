package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/multimart/multimart/backend/go-services/internal/accounts"
	"github.com/multimart/multimart/backend/go-services/internal/auth"
	"github.com/multimart/multimart/backend/go-services/internal/authstate"
	"github.com/multimart/multimart/backend/go-services/internal/flow"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
	"github.com/multimart/multimart/backend/go-services/pkg/middleware"
)

// CredentialsRequest is the sign-up / sign-in form.
type CredentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type flowEntry struct {
	store *authstate.Store
	ctrl  *flow.Controller
}

// AuthHandler serves the auth flow of every browser client.
type AuthHandler struct {
	stores   *authstate.Manager
	accounts *accounts.Service
	cfg      flow.Config
	// settle bounds how long a read waits for the initial session resume.
	settle time.Duration

	mu    sync.Mutex
	flows map[string]*flowEntry
}

func NewAuthHandler(stores *authstate.Manager, acc *accounts.Service, cfg flow.Config) *AuthHandler {
	h := &AuthHandler{
		stores:   stores,
		accounts: acc,
		cfg:      cfg,
		settle:   2 * time.Second,
		flows:    map[string]*flowEntry{},
	}
	stores.OnEvict(h.forget)
	return h
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.GET("", h.Enter)
	a.POST("/credentials", h.SubmitCredentials)
	a.POST("/mode", h.SetMode)
	a.POST("/verify/back", h.BackToAuth)
	a.POST("/profile", h.SubmitProfile)
	a.POST("/signout", h.SignOut)
	a.GET("/session", h.Session)
	a.GET("/events", h.Events)
	a.GET("/confirm", h.Confirm)
	a.GET("/options", h.Options)
}

// Store returns the session state of the requesting client.
func (h *AuthHandler) Store(c *gin.Context) *authstate.Store {
	return h.stores.Get(middleware.ClientID(c))
}

// Lookup is Store for read paths. A client whose cookie was issued on this
// request cannot have a session yet, so no store is created and nil is
// returned.
func (h *AuthHandler) Lookup(c *gin.Context) *authstate.Store {
	if middleware.FreshClient(c) {
		return nil
	}
	return h.Store(c)
}

// controller returns the client's flow, recreated when its store was evicted.
func (h *AuthHandler) controller(c *gin.Context) (*authstate.Store, *flow.Controller) {
	id := middleware.ClientID(c)
	st := h.stores.Get(id)
	return st, h.flowFor(id, st)
}

func (h *AuthHandler) flowFor(id string, st *authstate.Store) *flow.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.flows[id]
	if !ok || e.store != st {
		e = &flowEntry{store: st, ctrl: flow.NewController(st, h.cfg)}
		h.flows[id] = e
	}
	return e.ctrl
}

func (h *AuthHandler) forget(clientID string) {
	h.mu.Lock()
	delete(h.flows, clientID)
	h.mu.Unlock()
}

// waitLoaded gives a fresh store a bounded chance to finish resuming.
func (h *AuthHandler) waitLoaded(ctx context.Context, st *authstate.Store) authstate.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, h.settle)
	defer cancel()
	snap, _ := st.WaitFor(ctx, func(s authstate.Snapshot) bool { return !s.IsLoading })
	return snap
}

// statusFor maps a flow error onto an HTTP status.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, flow.ErrPending) {
		return http.StatusConflict
	}
	var ae *auth.Error
	if errors.As(err, &ae) {
		if ae.Local() {
			return http.StatusUnprocessableEntity
		}
		switch ae.Kind {
		case auth.InvalidCredentials, auth.EmailNotVerified, auth.NotAuthenticated:
			return http.StatusUnauthorized
		}
	}
	return http.StatusBadGateway
}

func respond(c *gin.Context, v flow.View, err error) {
	if v.Exit && err == nil && c.Request.Method == http.MethodGet {
		c.Redirect(http.StatusSeeOther, v.ExitTo)
		return
	}
	c.JSON(statusFor(err), v)
}

// Enter starts the flow from the query: mode=signup, mode=complete-profile
// or a bare complete-profile flag, and redirect.
func (h *AuthHandler) Enter(c *gin.Context) {
	st, ctrl := h.controller(c)
	h.waitLoaded(c.Request.Context(), st)
	_, flag := c.GetQuery(flow.QueryModeCompleteProfile)
	v := ctrl.Enter(flow.Query{
		Mode:            c.Query("mode"),
		CompleteProfile: flag,
		Redirect:        c.Query("redirect"),
	})
	respond(c, v, nil)
}

func (h *AuthHandler) SubmitCredentials(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, ctrl := h.controller(c)
	v, err := ctrl.SubmitCredentials(c.Request.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.ConfirmPassword,
	})
	respond(c, v, err)
}

func (h *AuthHandler) SetMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, ctrl := h.controller(c)
	respond(c, ctrl.SetMode(flow.Mode(req.Mode)), nil)
}

func (h *AuthHandler) BackToAuth(c *gin.Context) {
	_, ctrl := h.controller(c)
	respond(c, ctrl.BackToAuth(), nil)
}

func (h *AuthHandler) SubmitProfile(c *gin.Context) {
	var form flow.ProfileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, ctrl := h.controller(c)
	v, err := ctrl.SubmitProfile(c.Request.Context(), form)
	respond(c, v, err)
}

// SignOut always succeeds for the client; a provider failure is reported as
// a warning after the local session has been cleared.
func (h *AuthHandler) SignOut(c *gin.Context) {
	resp := gin.H{"signed_out": true}
	st := h.Lookup(c)
	if st == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	if err := st.SignOut(c.Request.Context()); err != nil {
		logger.Warnf("signout for client %s: %v", middleware.ClientID(c), err)
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Session(c *gin.Context) {
	var snap authstate.Snapshot
	if st := h.Lookup(c); st != nil {
		snap = h.waitLoaded(c.Request.Context(), st)
	}
	c.JSON(http.StatusOK, gin.H{
		"identity":            snap.Identity,
		"profile":             snap.Profile,
		"is_loading":          snap.IsLoading,
		"is_profile_complete": snap.IsProfileComplete(),
	})
}

// Events streams the flow view on every session change until the client
// disconnects or the flow exits. The store stays pinned while the stream is
// open. A client without a cookie yet gets the initial view and is expected
// to reconnect with the cookie it was just issued.
func (h *AuthHandler) Events(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	send := func(v flow.View) {
		c.SSEvent("view", v)
		c.Writer.Flush()
	}
	if middleware.FreshClient(c) {
		send(flow.View{Step: flow.StepAuth, Mode: flow.ModeSignIn})
		return
	}
	id := middleware.ClientID(c)
	st, release := h.stores.Acquire(id)
	defer release()
	h.flowFor(id, st).Watch(c.Request.Context(), send)
}

// Confirm is the target of the emailed verification link.
func (h *AuthHandler) Confirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	id, err := h.accounts.ConfirmEmail(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("confirm email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": true, "email": id.Email})
}

func (h *AuthHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, flow.ProfileOptions())
}
