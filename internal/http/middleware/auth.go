package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storeboost/storeboost-auth/internal/domain"
	"github.com/storeboost/storeboost-auth/internal/repository"
	"github.com/storeboost/storeboost-auth/internal/token"
)

const (
	currentUserKey = "currentUser"
	rawTokenKey    = "rawToken"
)

// Auth guards protected routes: it verifies the bearer credential and
// resolves the embedded user before the handler runs. Authorization checks
// (RequireAdmin) compose on top of it.
type Auth struct {
	Tokens *token.Service
	Users  repository.UserRepository
}

// RequireToken aborts with 401 unless the request carries a currently valid
// session token for an active account.
func (m *Auth) RequireToken(c *gin.Context) {
	raw := extractToken(c.GetHeader("Authorization"))
	if raw == "" {
		abortUnauthorized(c, "Authentication token required.")
		return
	}

	claims, err := m.Tokens.Verify(c.Request.Context(), raw, m.Tokens.MaxAge())
	if err != nil {
		if !errors.Is(err, token.ErrInvalidToken) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal_error", "message": "Something went wrong. Please try again later.",
			})
			return
		}
		abortUnauthorized(c, "Invalid or expired token.")
		return
	}

	user, err := m.Users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		abortUnauthorized(c, "Invalid or expired token.")
		return
	}
	if !user.IsActive {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "forbidden", "message": "Your account has been suspended.",
		})
		return
	}

	c.Set(currentUserKey, user)
	c.Set(rawTokenKey, raw)
	c.Next()
}

// RequireAdmin composes on RequireToken and aborts with 403 for non-admins.
func (m *Auth) RequireAdmin(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		abortUnauthorized(c, "Authentication token required.")
		return
	}
	if !user.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "forbidden", "message": "You are not allowed to perform this action.",
		})
		return
	}
	c.Next()
}

// CurrentUser returns the resolved identity set by RequireToken.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}

// RawToken returns the token string the request authenticated with.
func RawToken(c *gin.Context) string {
	value, ok := c.Get(rawTokenKey)
	if !ok {
		return ""
	}
	raw, _ := value.(string)
	return raw
}

// extractToken accepts "Token <v>" (the frontend convention) and
// "Bearer <v>" as equivalent schemes, plus a bare token value.
func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && (strings.EqualFold(parts[0], "Token") || strings.EqualFold(parts[0], "Bearer")) {
		return strings.TrimSpace(parts[1])
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "unauthorized", "message": message,
	})
}
