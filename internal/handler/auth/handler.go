package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/icu-api/internal/handler"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/service/auth"
	"github.com/jwalitptl/icu-api/internal/service/user"
	"github.com/jwalitptl/icu-api/pkg/httputil"
)

type Handler struct {
	svc   auth.AuthService
	users user.UserService
}

func NewHandler(svc auth.AuthService, users user.UserService) *Handler {
	return &Handler{svc: svc, users: users}
}

// RegisterPublicRoutes mounts the routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, require handler.RoleGuard) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.Me)
		auth.POST("/logout", h.Logout)
		auth.PUT("/password", h.ChangePassword)
		auth.POST("/register", require(handler.RolesAdmin...), h.Register)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tokens)
}

// Register creates an account on behalf of an administrator.
func (h *Handler) Register(c *gin.Context) {
	var req model.CreateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), &req)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, user)
}

func (h *Handler) Me(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	user, err := h.svc.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	claims := middleware.CurrentClaims(c)
	if err := h.svc.ChangePassword(c.Request.Context(), claims.UserID, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Password changed successfully"})
}
