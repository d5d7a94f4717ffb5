package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/apperr"
	"github.com/storeboost/storeboost-auth/internal/domain"
)

// respondError maps any error onto the stable client-facing shape. Internal
// causes are logged, never serialized.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= 500 {
		if logger == nil {
			logger = zap.L()
		}
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(appErr.Status, gin.H{"error": appErr.Code, "message": appErr.Message})
}

type userResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	RoleID     int    `json:"role_id"`
	AvatarURL  string `json:"avatar,omitempty"`
	IsActive   bool   `json:"is_active"`
	Registered bool   `json:"registered"`
}

type orgResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		RoleID:     user.RoleID,
		AvatarURL:  user.AvatarURL,
		IsActive:   user.IsActive,
		Registered: user.Registered,
	}
}

func toOrgResponse(org domain.Organization) orgResponse {
	return orgResponse{ID: org.ID, Name: org.Name}
}

type storeResponse struct {
	ID        int64  `json:"id"`
	StoreURL  string `json:"store_url"`
	StoreName string `json:"store_name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toStoreResponse(store domain.Store) storeResponse {
	resp := storeResponse{
		ID:        store.ID,
		StoreURL:  store.StoreURL,
		StoreName: store.StoreName,
	}
	if !store.CreatedAt.IsZero() {
		resp.CreatedAt = store.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !store.UpdatedAt.IsZero() {
		resp.UpdatedAt = store.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
