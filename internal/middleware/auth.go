package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	"github.com/jwalitptl/icu-api/pkg/auth"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
)

const ContextClaims = "claims"

const (
	MsgAccountDisabled = "Account is disabled"
	MsgAccountRemoved  = "Account no longer exists"
)

type AuthMiddleware struct {
	jwt    auth.JWTService
	tokens repository.TokenRepository
	users  repository.UserRepository
}

func NewAuthMiddleware(jwtService auth.JWTService, tokens repository.TokenRepository, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:    jwtService,
		tokens: tokens,
		users:  users,
	}
}

// Authenticate verifies the bearer token, rejects revoked tokens and tokens
// of deleted or deactivated accounts, and stores the claims in the context.
// The role in the context is the account's current one, not the one signed
// into the token.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			Fail(c, apperrors.Unauthorized("Missing authorization header", nil))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			Fail(c, apperrors.Unauthorized("Invalid authorization format", nil))
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			Fail(c, apperrors.Unauthorized("Invalid or expired token", err))
			return
		}

		revoked, err := m.tokens.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.Error().Err(err).Msg("Token revocation lookup failed")
			Fail(c, apperrors.NewInternal(err))
			return
		}
		if revoked {
			Fail(c, apperrors.Unauthorized("Token has been revoked", nil))
			return
		}

		user, err := m.users.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			if service.IsNotFound(err) {
				Fail(c, apperrors.Unauthorized(MsgAccountRemoved, nil))
				return
			}
			Fail(c, service.StoreError("User", err))
			return
		}
		if !user.Active {
			Fail(c, apperrors.Unauthorized(MsgAccountDisabled, nil))
			return
		}
		claims.Role = user.Role

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles. It must
// run after Authenticate.
func (m *AuthMiddleware) RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			Fail(c, apperrors.Unauthorized("", nil))
			return
		}
		if !slices.Contains(roles, claims.Role) {
			Fail(c, apperrors.Forbidden("You do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the authenticated caller, or nil.
func CurrentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
