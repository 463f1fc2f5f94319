package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository/memory"
	userService "github.com/jwalitptl/icu-api/internal/service/user"
	pkgauth "github.com/jwalitptl/icu-api/pkg/auth"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/security"
)

type fixture struct {
	ctx    context.Context
	now    time.Time
	store  *memory.Store
	tokens *memory.TokenStore
	jwt    pkgauth.JWTService
	svc    *Service
	user   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		now:    time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		store:  memory.NewStore(),
		tokens: memory.NewTokenStore(),
	}
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	var err error
	f.jwt, err = pkgauth.NewJWTService(pkgauth.Config{Secret: "0123456789abcdef0123456789abcdef", Issuer: "icu-api", Expiry: time.Hour})
	require.NoError(t, err)
	f.svc = NewService(f.store.Users(), f.tokens, f.jwt, hasher, WithClock(func() time.Time { return f.now }))

	f.user, err = userService.NewService(f.store.Users(), hasher).CreateUser(f.ctx, &model.CreateUserRequest{
		Username: "Nurse1",
		Email:    "nurse1@icu.local",
		Name:     "Nina Nurse",
		Password: "correct-horse",
		Role:     model.RoleNurse,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) login(login, password string) (*model.TokenResponse, error) {
	return f.svc.Login(f.ctx, &model.LoginRequest{Login: login, Password: password})
}

func assertUnauthorized(t *testing.T, err error, msg string) {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	assert.Equal(t, msg, appErr.Message)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	t.Run("username is case-insensitive", func(t *testing.T) {
		resp, err := f.login("NURSE1", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, f.user.ID, resp.User.ID)

		claims, err := f.jwt.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, model.RoleNurse, claims.Role)
	})

	t.Run("email works too", func(t *testing.T) {
		_, err := f.login("nurse1@icu.local", "correct-horse")
		require.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.login("ghost", "correct-horse")
		assertUnauthorized(t, err, MsgInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.login("nurse1", "wrong-password")
		assertUnauthorized(t, err, MsgInvalidCredentials)
	})

	t.Run("records last login", func(t *testing.T) {
		_, err := f.login("nurse1", "correct-horse")
		require.NoError(t, err)
		u, err := f.store.Users().Get(f.ctx, f.user.ID)
		require.NoError(t, err)
		require.NotNil(t, u.LastLoginAt)
		assert.Equal(t, f.now, *u.LastLoginAt)
		assert.Zero(t, u.FailedLoginAttempts)
	})
}

func TestLogin_Lockout(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < MaxFailedAttempts; i++ {
		_, err := f.login("nurse1", "wrong-password")
		assertUnauthorized(t, err, MsgInvalidCredentials)
	}

	_, err := f.login("nurse1", "correct-horse")
	assertUnauthorized(t, err, MsgAccountLocked)

	f.now = f.now.Add(LockoutDuration - time.Second)
	_, err = f.login("nurse1", "correct-horse")
	assertUnauthorized(t, err, MsgAccountLocked)

	f.now = f.now.Add(2 * time.Second)
	_, err = f.login("nurse1", "correct-horse")
	require.NoError(t, err)

	u, err := f.store.Users().Get(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, u.LockedUntil)
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < MaxFailedAttempts-1; i++ {
		_, _ = f.login("nurse1", "wrong-password")
	}
	_, err := f.login("nurse1", "correct-horse")
	require.NoError(t, err)

	_, _ = f.login("nurse1", "wrong-password")
	_, err = f.login("nurse1", "correct-horse")
	require.NoError(t, err)
}

func TestLogin_Disabled(t *testing.T) {
	f := newFixture(t)
	f.user.Active = false
	require.NoError(t, f.store.Users().Update(f.ctx, f.user))

	_, err := f.login("nurse1", "correct-horse")
	assertUnauthorized(t, err, MsgAccountDisabled)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newFixture(t)
	resp, err := f.login("nurse1", "correct-horse")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(f.ctx, claims))

	revoked, err := f.tokens.IsRevoked(f.ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ChangePassword(f.ctx, f.user.ID, &model.ChangePasswordRequest{
		CurrentPassword: "not-it",
		NewPassword:     "battery-staple",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	require.NoError(t, f.svc.ChangePassword(f.ctx, f.user.ID, &model.ChangePasswordRequest{
		CurrentPassword: "correct-horse",
		NewPassword:     "battery-staple",
	}))

	_, err = f.login("nurse1", "correct-horse")
	assertUnauthorized(t, err, MsgInvalidCredentials)
	_, err = f.login("nurse1", "battery-staple")
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Me(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "nurse1", u.Username)
}
