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

// StoreHandler exposes the Shopify store connection endpoints.
type StoreHandler struct {
	Stores *service.StoreService
	Logger *zap.Logger
}

// NewStoreHandler creates the handler set.
func NewStoreHandler(stores *service.StoreService, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{Stores: stores, Logger: logger}
}

// Connect starts the OAuth handshake for a shop and returns the
// authorization URL the client should redirect the merchant to.
func (h *StoreHandler) Connect(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	var req struct {
		StoreURL string `json:"store_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	authURL, err := h.Stores.BeginConnect(c.Request.Context(), user.ID, req.StoreURL)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// OAuthCallback completes the handshake Shopify redirects back to. It is
// unauthenticated; the state parameter carries the initiating identity.
func (h *StoreHandler) OAuthCallback(c *gin.Context) {
	shop := c.Query("shop")
	code := c.Query("code")
	state := c.Query("state")
	if shop == "" || code == "" || state == "" {
		respondError(c, h.Logger, apperr.BadRequest("Missing callback parameters."))
		return
	}

	store, err := h.Stores.CompleteConnect(c.Request.Context(), shop, code, state)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Store connected.",
		"store":   toStoreResponse(*store),
	})
}

// Add registers a store from a manually supplied access token.
func (h *StoreHandler) Add(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	var req struct {
		StoreURL    string `json:"store_url"`
		AccessToken string `json:"access_token"`
		StoreName   string `json:"store_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	store, err := h.Stores.AddManual(c.Request.Context(), user.ID, req.StoreURL, req.AccessToken, req.StoreName)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"store": toStoreResponse(*store)})
}

// List returns the caller's connected stores.
func (h *StoreHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	stores, err := h.Stores.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	resp := make([]storeResponse, 0, len(stores))
	for _, store := range stores {
		resp = append(resp, toStoreResponse(store))
	}
	c.JSON(http.StatusOK, gin.H{"stores": resp})
}

// Rename updates a store's display name.
func (h *StoreHandler) Rename(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	storeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid store id."))
		return
	}

	var req struct {
		StoreName string `json:"store_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid request body."))
		return
	}

	store, err := h.Stores.Rename(c.Request.Context(), user.ID, storeID, req.StoreName)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": toStoreResponse(*store)})
}

// Delete disconnects a store.
func (h *StoreHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, apperr.Unauthorized("Invalid token."))
		return
	}

	storeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.Logger, apperr.BadRequest("Invalid store id."))
		return
	}

	if err := h.Stores.Delete(c.Request.Context(), user.ID, storeID); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Store deleted."})
}
