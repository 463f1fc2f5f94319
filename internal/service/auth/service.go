package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	pkgauth "github.com/jwalitptl/icu-api/pkg/auth"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/security"
)

const (
	MaxFailedAttempts = 5
	LockoutDuration   = 15 * time.Minute

	MsgInvalidCredentials = "Invalid credentials"
	MsgAccountLocked      = "Account is locked after too many failed attempts, try again later"
	MsgAccountDisabled    = "Account is disabled"
	MsgWrongPassword      = "Current password is incorrect"
)

type AuthService interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
	Logout(ctx context.Context, claims *pkgauth.Claims) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error
}

type Service struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	jwt    pkgauth.JWTService
	hasher security.PasswordHasher
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(users repository.UserRepository, tokens repository.TokenRepository, jwtService pkgauth.JWTService, hasher security.PasswordHasher, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		jwt:    jwtService,
		hasher: hasher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login accepts a username or an email. Five consecutive failures lock the
// account for LockoutDuration.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	login := strings.ToLower(strings.TrimSpace(req.Login))

	user, err := s.users.GetByUsername(ctx, login)
	if service.IsNotFound(err) && strings.Contains(login, "@") {
		user, err = s.users.GetByEmail(ctx, login)
	}
	if err != nil {
		if service.IsNotFound(err) {
			return nil, apperrors.Unauthorized(MsgInvalidCredentials, nil)
		}
		return nil, service.StoreError("User", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, apperrors.Unauthorized(MsgAccountLocked, nil)
	}
	if !user.Active {
		return nil, apperrors.Unauthorized(MsgAccountDisabled, nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= MaxFailedAttempts {
			until := now.Add(LockoutDuration)
			user.LockedUntil = &until
			user.FailedLoginAttempts = 0
			log.Warn().Str("user_id", user.ID.String()).Time("locked_until", until).Msg("Account locked")
		}
		user.Touch(now)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, service.StoreError("User", err)
		}
		return nil, apperrors.Unauthorized(MsgInvalidCredentials, nil)
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.Touch(now)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, service.StoreError("User", err)
	}

	token, claims, err := s.jwt.GenerateAccessToken(pkgauth.Subject{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User logged in")
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        user,
	}, nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, service.StoreError("User", err)
	}
	return user, nil
}

// Logout revokes the token id until the token expires.
func (s *Service) Logout(ctx context.Context, claims *pkgauth.Claims) error {
	expiresAt := s.now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.tokens.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return apperrors.NewInternal(err)
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return service.StoreError("User", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return apperrors.NewBadRequest(MsgWrongPassword, nil)
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	user.PasswordHash = hash
	user.Touch(s.now())
	if err := s.users.Update(ctx, user); err != nil {
		return service.StoreError("User", err)
	}
	log.Info().Str("user_id", user.ID.String()).Msg("Password changed")
	return nil
}

var _ AuthService = (*Service)(nil)
