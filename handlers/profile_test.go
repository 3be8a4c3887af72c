package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeRedirectsAnonymous(t *testing.T) {
	srv := newTestServer(t)
	b := srv.browser(t)
	b.get("/auth")

	w := b.get("/api/v1/me")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth?redirect="+url.QueryEscape("/api/v1/me"), w.Header().Get("Location"))
}

func TestMeSignedIn(t *testing.T) {
	srv := newTestServer(t)
	b := signedInComplete(t, srv, "me@dtu.ac.in")

	w := b.get("/api/v1/me")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Identity struct {
			Email string `json:"email"`
		} `json:"identity"`
		Complete bool `json:"is_profile_complete"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "me@dtu.ac.in", got.Identity.Email)
	assert.True(t, got.Complete)
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestPatchProfile(t *testing.T) {
	srv := newTestServer(t)
	b := signedInComplete(t, srv, "me@dtu.ac.in")

	w := b.patch("/api/v1/profile", gin.H{"bio": "selling cycles", "avatar_url": "spoofed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "selling cycles")
	assert.NotContains(t, w.Body.String(), "spoofed")

	w = b.patch("/api/v1/profile", gin.H{"hostel": " "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_profile_complete":false`)

	assert.Equal(t, http.StatusBadRequest, b.patch("/api/v1/profile", gin.H{}).Code)
}

func TestAvatarRequiresCompleteProfile(t *testing.T) {
	srv := newTestServer(t)
	b := srv.browser(t)
	b.get("/auth?mode=signup")
	b.post("/auth/credentials", CredentialsRequest{Email: "a@dtu.ac.in", Password: "secret1", ConfirmPassword: "secret1"})
	b.confirm("a@dtu.ac.in")
	b.post("/auth/mode", gin.H{"mode": "signin"})
	b.post("/auth/credentials", CredentialsRequest{Email: "a@dtu.ac.in", Password: "secret1"})

	w := b.get("/api/v1/profile/avatar")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/auth?mode=complete-profile", w.Header().Get("Location"))
}

func TestAvatarUploadAndURL(t *testing.T) {
	srv := newTestServer(t)
	b := signedInComplete(t, srv, "me@dtu.ac.in")

	assert.Equal(t, http.StatusNotFound, b.get("/api/v1/profile/avatar").Code)

	w := b.upload("/api/v1/profile/avatar", "avatar", "me.png", "image/png", []byte("\x89PNG fake"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var put struct {
		Key string `json:"avatar_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &put))
	assert.True(t, strings.HasPrefix(put.Key, "avatars/"))
	data, ct, ok := srv.avatars.Get(put.Key)
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "\x89PNG fake", string(data))

	w = b.get("/api/v1/profile/avatar")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http://cdn.test/"+put.Key)
}

func TestAvatarRejectsNonImage(t *testing.T) {
	srv := newTestServer(t)
	b := signedInComplete(t, srv, "me@dtu.ac.in")
	w := b.upload("/api/v1/profile/avatar", "avatar", "notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
