// Package guard gates protected routes on the session state.
package guard

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/multimart/multimart/backend/go-services/internal/authstate"
	"github.com/multimart/multimart/backend/go-services/pkg/metrics"
)

// Outcome is the guard verdict for one request.
type Outcome string

const (
	Loading         Outcome = "loading"
	RedirectAuth    Outcome = "redirect_auth"
	RedirectProfile Outcome = "redirect_profile"
	Allow           Outcome = "allow"
)

// Paths the guard redirects to.
const (
	AuthPath            = "/auth"
	CompleteProfilePath = "/auth?mode=complete-profile"
)

// Decision is the guard result. Location is set for redirects.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide evaluates, in order: loading, no identity, incomplete profile
// (when required), allow.
func Decide(snap authstate.Snapshot, requireComplete bool, requested string) Decision {
	switch {
	case snap.IsLoading:
		return Decision{Outcome: Loading}
	case !snap.SignedIn():
		loc := AuthPath
		if requested != "" {
			loc += "?redirect=" + url.QueryEscape(requested)
		}
		return Decision{Outcome: RedirectAuth, Location: loc}
	case requireComplete && !snap.IsProfileComplete():
		return Decision{Outcome: RedirectProfile, Location: CompleteProfilePath}
	}
	return Decision{Outcome: Allow}
}

// StoreFunc returns the session state for the request, or nil for a client
// that cannot have one yet.
type StoreFunc func(c *gin.Context) *authstate.Store

// Middleware applies Decide to every request. Allowed requests carry the
// snapshot under the "session" key.
func Middleware(stores StoreFunc, requireComplete bool) gin.HandlerFunc {
	return handle(func(c *gin.Context) authstate.Snapshot {
		if st := stores(c); st != nil {
			return st.Current()
		}
		return authstate.Snapshot{}
	}, requireComplete)
}

func handle(snapshot func(*gin.Context) authstate.Snapshot, requireComplete bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := snapshot(c)
		d := Decide(snap, requireComplete, c.Request.URL.RequestURI())
		metrics.GuardDecisions.WithLabelValues(string(d.Outcome)).Inc()
		switch d.Outcome {
		case Loading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"status": "loading"})
			return
		case RedirectAuth, RedirectProfile:
			c.Redirect(http.StatusSeeOther, d.Location)
			c.Abort()
			return
		}
		c.Set("session", snap)
		c.Next()
	}
}

// SessionFrom returns the snapshot stored by Middleware.
func SessionFrom(c *gin.Context) (authstate.Snapshot, bool) {
	v, ok := c.Get("session")
	if !ok {
		return authstate.Snapshot{}, false
	}
	snap, ok := v.(authstate.Snapshot)
	return snap, ok
}
