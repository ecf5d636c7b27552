package service

import (
	"context"
	"testing"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/service/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (*AuthService, *servicetest.Sessions) {
	t.Helper()
	sessions := servicetest.NewSessions()
	svc := NewAuthService(servicetest.NewMemStore(), sessions, time.Hour)
	_, err := svc.CreateUser(context.Background(), "admin", "s3cret-pass")
	require.NoError(t, err)
	return svc, sessions
}

func TestLoginSuccess(t *testing.T) {
	svc, sessions := newAuthFixture(t)
	ctx := context.Background()

	id, sess, err := svc.Login(ctx, "admin", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, sess.LoggedIn)
	assert.Equal(t, "admin", sess.Username)

	got, err := svc.Session(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Username)

	require.NoError(t, svc.Logout(ctx, id))
	got, err = svc.Session(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, sessions.Sessions)
}

func TestLoginWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	svc, sessions := newAuthFixture(t)
	ctx := context.Background()

	_, _, wrongPassword := svc.Login(ctx, "admin", "not-the-password")
	_, _, unknownUser := svc.Login(ctx, "nobody", "whatever-pass")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Empty(t, sessions.Sessions)
}

func TestLoginShortInputIsGenericMismatch(t *testing.T) {
	svc, sessions := newAuthFixture(t)
	ctx := context.Background()

	_, _, shortUser := svc.Login(ctx, "zz", "wrongpass")
	_, _, shortPassword := svc.Login(ctx, "admin", "wrong")
	_, _, blank := svc.Login(ctx, "", "")

	for _, err := range []error{shortUser, shortPassword, blank} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.NotErrorIs(t, err, ErrInvalidLogin)
	}
	assert.Empty(t, sessions.Sessions)
}

func TestLoginAcceptsLegacyShortPassword(t *testing.T) {
	repo := servicetest.NewMemStore()
	svc := NewAuthService(repo, servicetest.NewSessions(), time.Hour)
	hash, err := bcrypt.GenerateFromPassword([]byte("abc"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.Users["jo"] = &models.User{ID: 1, Username: "jo", Password: string(hash)}

	_, sess, err := svc.Login(context.Background(), "jo", "abc")
	require.NoError(t, err)
	assert.Equal(t, "jo", sess.Username)
}

func TestCreateUserValidatesInput(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "ab", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	_, err = svc.CreateUser(ctx, "clerk", "short")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	_, err = svc.CreateUser(ctx, " admin ", "another-pass")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestPasswordIsHashed(t *testing.T) {
	repo := servicetest.NewMemStore()
	svc := NewAuthService(repo, servicetest.NewSessions(), time.Hour)

	_, err := svc.CreateUser(context.Background(), "clerk", "plain-text-pw")
	require.NoError(t, err)
	assert.NotEqual(t, "plain-text-pw", repo.Users["clerk"].Password)
	assert.Contains(t, repo.Users["clerk"].Password, "$2a$")
}

func TestEnsureAdmin(t *testing.T) {
	repo := servicetest.NewMemStore()
	svc := NewAuthService(repo, servicetest.NewSessions(), time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	assert.Empty(t, repo.Users)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "first-password"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "second-password"))

	_, _, err := svc.Login(ctx, "admin", "first-password")
	assert.NoError(t, err)
	_, _, err = svc.Login(ctx, "admin", "second-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionMissing(t *testing.T) {
	svc, _ := newAuthFixture(t)

	sess, err := svc.Session(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = svc.Session(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, sess)
}
