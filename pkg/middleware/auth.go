package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Revocations reports whether a bearer token was revoked before expiry.
type Revocations interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// chain tries each verifier in turn.
type chain []Verifier

func (vs chain) Verify(ctx context.Context, raw string) (Token, error) {
	var errs []error
	for _, v := range vs {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}

// FirstOf returns a Verifier accepting tokens that any of vs accepts. Nil
// entries are skipped.
func FirstOf(vs ...Verifier) Verifier {
	var c chain
	for _, v := range vs {
		if v != nil {
			c = append(c, v)
		}
	}
	return c
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier.
// rev may be nil.
func AuthMiddleware(ver Verifier, rev Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		if rev != nil {
			revoked, err := rev.IsRevoked(c.Request.Context(), token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "revocation check failed"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		// Extract claims
		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		c.Set("claims", claims)
		c.Set("bearer", token)
		c.Next()
	}
}

// RequireRole rejects requests whose claims lack role. It accepts a plain
// "role" claim, a "roles" list, or Keycloak's realm_access.roles.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get("claims")
		claims, _ := v.(map[string]interface{})
		if !HasRole(claims, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func HasRole(claims map[string]interface{}, role string) bool {
	if claims == nil {
		return false
	}
	if r, ok := claims["role"].(string); ok && r == role {
		return true
	}
	if listHas(claims["roles"], role) {
		return true
	}
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		return listHas(ra["roles"], role)
	}
	return false
}

func listHas(v interface{}, role string) bool {
	list, ok := v.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s == role {
			return true
		}
	}
	return false
}
