package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/config"
	"github.com/storeboost/storeboost-auth/internal/http/handler"
	httpmiddleware "github.com/storeboost/storeboost-auth/internal/http/middleware"
	"github.com/storeboost/storeboost-auth/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	logger *zap.Logger,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	storeHandler *handler.StoreHandler,
	gateway *httpmiddleware.Auth,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/forgot_password", authHandler.ForgotPassword)
		auth.GET("/logout", gateway.RequireToken, authHandler.Logout)
		auth.PATCH("/reset_password", gateway.RequireToken, authHandler.ResetPassword)
		auth.GET("/me", gateway.RequireToken, authHandler.Me)
	}

	users := v1.Group("/users")
	{
		users.POST("/invite", gateway.RequireToken, gateway.RequireAdmin, userHandler.Invite)
		users.POST("/accept_invitation", gateway.RequireToken, userHandler.AcceptInvitation)
		users.PATCH("/:id/active", gateway.RequireToken, gateway.RequireAdmin, userHandler.SetActive)
	}

	stores := v1.Group("/stores")
	{
		// Shopify redirects the merchant's browser here; the state
		// parameter carries the initiating identity.
		stores.GET("/oauth/callback", storeHandler.OAuthCallback)

		stores.POST("/connect", gateway.RequireToken, storeHandler.Connect)
		stores.POST("", gateway.RequireToken, storeHandler.Add)
		stores.GET("", gateway.RequireToken, storeHandler.List)
		stores.PUT("/:id", gateway.RequireToken, storeHandler.Rename)
		stores.DELETE("/:id", gateway.RequireToken, storeHandler.Delete)
	}

	return r
}
