package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/multimart/multimart/backend/go-services/internal/accounts"
	"github.com/multimart/multimart/backend/go-services/internal/auth"
	"github.com/multimart/multimart/backend/go-services/internal/authstate"
	"github.com/multimart/multimart/backend/go-services/internal/events"
	"github.com/multimart/multimart/backend/go-services/internal/flow"
	"github.com/multimart/multimart/backend/go-services/internal/identity"
	"github.com/multimart/multimart/backend/go-services/internal/mail"
	"github.com/multimart/multimart/backend/go-services/internal/profiles"
	"github.com/multimart/multimart/backend/go-services/internal/sessions"
	"github.com/multimart/multimart/backend/go-services/internal/storage"
	"github.com/multimart/multimart/backend/go-services/internal/tokens"
	"github.com/multimart/multimart/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
)

const testSecret = "handlers-test-secret-0123456789abcdef"

type testServer struct {
	engine   *gin.Engine
	stores   *authstate.Manager
	box      *mail.Outbox
	backend  *identity.Backend
	avatars  *storage.MemoryStorage
	revoker  *fakeRevoker
	profiles *profiles.Service
}

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	box := &mail.Outbox{}
	prof := profiles.NewService(profiles.NewMemoryRepository())
	b := &identity.Backend{
		Accounts: accounts.NewService(accounts.NewMemoryRepository(), accounts.Options{
			Secret: testSecret, PublicURL: "http://mart.test", Mailer: box,
		}),
		Sessions: sessions.NewService(sessions.NewMemoryRepository(), time.Hour),
		Profiles: prof,
		Bus:      events.NewMemoryBus(),
	}
	policy := auth.NewDomainPolicy("dtu.ac.in")
	mgr := authstate.NewManager(func(id string) identity.Gateway { return b.For(id) }, policy)
	t.Cleanup(mgr.Close)

	ah := NewAuthHandler(mgr, b.Accounts, flow.Config{
		Validator:  auth.Validator{Policy: policy, MinPasswordLength: 6},
		HomePath:   "/",
		SignInWait: 2 * time.Second,
	})
	avatars := storage.NewMemoryStorage("http://cdn.test")
	rev := &fakeRevoker{revoked: map[string]time.Duration{}}

	r := gin.New()
	r.Use(middleware.ClientCookie{Name: "mm_client"}.Middleware())
	root := r.Group("")
	ah.Register(root)
	NewProfileHandler(ah.Lookup, avatars).Register(r.Group("/api/v1"))
	NewAdminHandler(prof, rev,
		middleware.AuthMiddleware(tokens.NewVerifier(testSecret), rev),
		middleware.RequireRole("admin"),
	).Register(root)

	return &testServer{engine: r, stores: mgr, box: box, backend: b, avatars: avatars, revoker: rev, profiles: prof}
}

// browser keeps the client cookie between requests.
type browser struct {
	t      *testing.T
	srv    *testServer
	cookie *http.Cookie
}

func (s *testServer) browser(t *testing.T) *browser {
	return &browser{t: t, srv: s}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.srv.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == "mm_client" {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(http.MethodPost, path, rd)
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func (b *browser) patch(path string, body interface{}) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(b.t, err)
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func (b *browser) upload(path, field, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(h)
	require.NoError(b.t, err)
	_, err = part.Write(data)
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())
	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) flow.View {
	t.Helper()
	var v flow.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// confirm follows the emailed verification link.
func (b *browser) confirm(email string) {
	link := b.srv.box.Link(email)
	require.NotEmpty(b.t, link)
	u, err := url.Parse(link)
	require.NoError(b.t, err)
	w := b.get(u.RequestURI())
	require.Equal(b.t, http.StatusOK, w.Code, w.Body.String())
}

var completeProfile = flow.ProfileForm{
	FullName: "Asha Verma", RollNumber: "2K21/CO/101", Branch: "Computer Engineering", Year: "3rd Year", Hostel: "BH-2",
}

// signedInComplete runs the whole flow and returns a browser with a complete profile.
func signedInComplete(t *testing.T, srv *testServer, email string) *browser {
	t.Helper()
	b := srv.browser(t)
	require.Equal(t, http.StatusOK, b.get("/auth?mode=signup").Code)
	w := b.post("/auth/credentials", CredentialsRequest{Email: email, Password: "secret1", ConfirmPassword: "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b.confirm(email)
	require.Equal(t, http.StatusOK, b.post("/auth/mode", gin.H{"mode": "signin"}).Code)
	w = b.post("/auth/credentials", CredentialsRequest{Email: email, Password: "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = b.post("/auth/profile", completeProfile)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decodeView(t, w).Exit)
	return b
}

type fakeRevoker struct {
	revoked map[string]time.Duration
}

func (f *fakeRevoker) Enabled() bool { return true }

func (f *fakeRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	f.revoked[token] = ttl
	return nil
}

func (f *fakeRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, ok := f.revoked[token]
	return ok, nil
}
