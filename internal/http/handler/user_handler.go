package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/apperr"
	"github.com/storeboost/storeboost-auth/internal/http/middleware"
	"github.com/storeboost/storeboost-auth/internal/service"
)

// UserHandler exposes the admin-facing membership endpoints.
type UserHandler struct {
	Auth   *service.AuthService
	Logger *zap.Logger
}

// NewUserHandler creates the handler set.
func NewUserHandler(auth *service.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{Auth: auth, Logger: logger}
}

// Invite creates a pending account and emails a registration link.
func (h *UserHandler) Invite(c *gin.Context) {
	inviter, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		RoleID    int    `json:"role_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	_, err := h.Auth.Invite(c.Request.Context(), inviter, service.InviteInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    req.RoleID,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Invitation sent."})
}

// AcceptInvitation completes registration for the bearer of an
// invitation token.
func (h *UserHandler) AcceptInvitation(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	err := h.Auth.AcceptInvitation(c.Request.Context(), user.ID, service.AcceptInvitationInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registration complete."})
}

// SetActive suspends or reinstates a member.
func (h *UserHandler) SetActive(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid user id."))
		return
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		respondError(c, h.Logger, apperr.BadRequest("Missing is_active flag."))
		return
	}

	if err := h.Auth.SetActive(c.Request.Context(), actor, userID, *req.IsActive); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated."})
}
