package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientRouter(seen *string) *gin.Engine {
	r := gin.New()
	r.Use(ClientCookie{Name: "mm_client"}.Middleware())
	r.GET("/", func(c *gin.Context) {
		*seen = ClientID(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestClientCookie_IssuesNewID(t *testing.T) {
	var seen string
	r := clientRouter(&seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, seen)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "mm_client", cookies[0].Name)
	assert.Equal(t, seen, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestClientCookie_ReusesValidID(t *testing.T) {
	var first, second string
	r := clientRouter(&first)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := w.Result().Cookies()[0]

	r2 := clientRouter(&second)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	r2.ServeHTTP(w2, req)

	assert.Equal(t, first, second)
	assert.Empty(t, w2.Result().Cookies(), "no new cookie for a valid id")
}

func TestClientCookie_ReplacesMalformedID(t *testing.T) {
	var seen string
	r := clientRouter(&seen)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "mm_client", Value: "short"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "short", seen)
	assert.True(t, validClientID(seen))
}

func TestClientCookie_SignedValue(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(ClientCookie{Name: "mm_client", Secret: "s3cret"}.Middleware())
	fresh := false
	r.GET("/", func(c *gin.Context) {
		seen = ClientID(c)
		fresh = FreshClient(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := w.Result().Cookies()[0]
	first := seen
	assert.True(t, fresh)
	assert.True(t, strings.HasPrefix(cookie.Value, first+"."))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, first, seen)
	assert.False(t, fresh)

	// an unsigned id is not accepted once a secret is set
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "mm_client", Value: first})
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, first, seen)
	assert.True(t, fresh)
}
