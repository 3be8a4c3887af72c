package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientCookie identifies a browser client across requests.
//
// With a Secret the cookie value is "<id>.<mac>" and a value this server did
// not issue is treated like a missing cookie.
type ClientCookie struct {
	Name   string
	Domain string
	Secure bool
	MaxAge int
	Secret string
}

// ClientID returns the client id set by ClientCookie.Middleware.
func ClientID(c *gin.Context) string {
	return c.GetString("client_id")
}

// FreshClient reports whether the client id was issued on this request.
// Such a client has no history on the server yet.
func FreshClient(c *gin.Context) bool {
	return c.GetBool("client_fresh")
}

// Middleware ensures every request carries a client id, issuing a new random
// cookie when the request has none or a malformed one.
func (cc ClientCookie) Middleware() gin.HandlerFunc {
	name := cc.Name
	if name == "" {
		name = "mm_client"
	}
	return func(c *gin.Context) {
		raw, err := c.Cookie(name)
		id, ok := "", false
		if err == nil {
			id, ok = cc.open(raw)
		}
		if !ok {
			id, err = newClientID()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to issue client id"})
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, cc.seal(id), cc.MaxAge, "/", cc.Domain, cc.Secure, true)
			c.Set("client_fresh", true)
		}
		c.Set("client_id", id)
		c.Next()
	}
}

func (cc ClientCookie) seal(id string) string {
	if cc.Secret == "" {
		return id
	}
	return id + "." + cc.mac(id)
}

// open returns the client id carried by a cookie value.
func (cc ClientCookie) open(raw string) (string, bool) {
	id, sig := raw, ""
	if cc.Secret != "" {
		var found bool
		id, sig, found = strings.Cut(raw, ".")
		if !found || !hmac.Equal([]byte(sig), []byte(cc.mac(id))) {
			return "", false
		}
	}
	return id, validClientID(id)
}

func (cc ClientCookie) mac(id string) string {
	m := hmac.New(sha256.New, []byte(cc.Secret))
	m.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

func newClientID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validClientID(id string) bool {
	b, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(b) == 32
}
