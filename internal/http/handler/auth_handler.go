package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/apperr"
	"github.com/storeboost/storeboost-auth/internal/http/middleware"
	"github.com/storeboost/storeboost-auth/internal/service"
)

// AuthHandler exposes the credential and session endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Logger *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

// Login verifies a credential pair and returns a fresh session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"auth_token": result.Token,
		"user":       toUserResponse(result.User),
		"org":        toOrgResponse(result.Org),
	})
}

// Register creates a self-service account and logs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	result, err := h.Auth.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"auth_token": result.Token,
		"user":       toUserResponse(result.User),
		"org":        toOrgResponse(result.Org),
	})
}

// Logout revokes the presented session token.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), user.ID, middleware.RawToken(c)); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out."})
}

// ForgotPassword emails a reset link. The response never reveals whether
// the address is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	if err := h.Auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent."})
}

// ResetPassword sets a new password for the bearer of a reset token and
// revokes the session that carried it.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	var req struct {
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	if err := h.Auth.ResetPassword(c.Request.Context(), user.ID, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	profile, org, err := h.Auth.Me(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": toUserResponse(profile),
		"org":  toOrgResponse(org),
	})
}
