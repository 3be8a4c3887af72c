package accounts

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/multimart/multimart/backend/go-services/internal/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "accounts-test-secret-0123456789abcdef"

func newTestService(t *testing.T) (*Service, *mail.Outbox) {
	t.Helper()
	box := &mail.Outbox{}
	svc := NewService(NewMemoryRepository(), Options{
		Secret:    testSecret,
		VerifyTTL: time.Hour,
		PublicURL: "http://mart.test",
		Mailer:    box,
	})
	return svc, box
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/auth/confirm", u.Path)
	return u.Query().Get("token")
}

func TestRegisterSendsVerificationLink(t *testing.T) {
	svc, box := newTestService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, " Student@DTU.ac.in ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "student@dtu.ac.in", id.Email)
	assert.False(t, id.EmailVerified)
	assert.Empty(t, id.PasswordHash, "public identity must not carry the hash")

	link := box.Link("student@dtu.ac.in")
	require.True(t, strings.HasPrefix(link, "http://mart.test/auth/confirm?token="), link)

	_, err = svc.Register(ctx, "student@dtu.ac.in", "other12")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestAuthenticateRequiresConfirmedEmail(t *testing.T) {
	svc, box := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@dtu.ac.in", "secret1")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "a@dtu.ac.in", "secret1")
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)

	confirmed, err := svc.ConfirmEmail(ctx, tokenFromLink(t, box.Link("a@dtu.ac.in")))
	require.NoError(t, err)
	assert.True(t, confirmed.EmailVerified)

	id, err := svc.Authenticate(ctx, "A@dtu.ac.in", "secret1")
	require.NoError(t, err)
	assert.Equal(t, confirmed.ID, id.ID)
}

func TestAuthenticateDoesNotRevealWhichPartFailed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "b@dtu.ac.in", "secret1")
	require.NoError(t, err)

	_, errUnknown := svc.Authenticate(ctx, "nobody@dtu.ac.in", "secret1")
	_, errWrong := svc.Authenticate(ctx, "b@dtu.ac.in", "wrong-pass")
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

type failingSender struct{ err error }

func (f failingSender) SendVerification(ctx context.Context, to, link string) error { return f.err }

func TestRegisterWithoutSecretCreatesNothing(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{Secret: "", PublicURL: "http://mart.test", Mailer: &mail.Outbox{}})
	ctx := context.Background()

	_, err := svc.Register(ctx, "c@dtu.ac.in", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue verification token")

	stored, err := repo.GetByEmail(ctx, "c@dtu.ac.in")
	require.NoError(t, err)
	assert.Nil(t, stored)

	// a retry is not told the address is taken
	_, err = svc.Register(ctx, "c@dtu.ac.in", "secret1")
	assert.NotErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterRollsBackWhenMailFails(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{
		Secret:    testSecret,
		PublicURL: "http://mart.test",
		Mailer:    failingSender{err: errors.New("relay down")},
	})
	ctx := context.Background()

	_, err := svc.Register(ctx, "d@dtu.ac.in", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")

	stored, err := repo.GetByEmail(ctx, "d@dtu.ac.in")
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = svc.Authenticate(ctx, "d@dtu.ac.in", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUnknownEmailPaysForBcrypt(t *testing.T) {
	cost, err := bcrypt.Cost([]byte(dummyHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestMemoryRepositoryDeleteFreesEmail(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	svc := NewService(repo, Options{Secret: testSecret, Mailer: &mail.Outbox{}})
	id, err := svc.Register(ctx, "e@dtu.ac.in", "secret1")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id.ID))
	got, err := repo.GetByID(ctx, id.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = svc.Register(ctx, "e@dtu.ac.in", "secret1")
	assert.NoError(t, err)
}

func TestConfirmEmailRejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ConfirmEmail(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashAndVerifyPassword(t *testing.T) {
	h, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", h)
	assert.NoError(t, VerifyPassword(h, "hunter22"))
	assert.Error(t, VerifyPassword(h, "hunter23"))
}
