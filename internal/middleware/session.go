package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/internal/service"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
	"github.com/campusforms/registry-api/pkg/response"
)

// ContextSessionKey is the gin context key storing session claims.
const ContextSessionKey = "adminSession"

// SessionTokenHeader carries the re-issued token on authenticated responses.
// Each request restarts the inactivity window, so the client should replace
// its stored token with this one.
const SessionTokenHeader = "X-Session-Token"

// Session protects dashboard routes by requiring a valid session token and
// slides the inactivity window by re-issuing a fresh token on every request.
func Session(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if renewed, _, err := authService.IssueToken(claims.Email); err == nil {
			c.Writer.Header().Set(SessionTokenHeader, renewed)
		}

		c.Set(ContextSessionKey, claims)
		c.Next()
	}
}

// SessionClaims extracts the claims stored by Session.
func SessionClaims(c *gin.Context) *models.SessionClaims {
	if value, exists := c.Get(ContextSessionKey); exists {
		if claims, ok := value.(*models.SessionClaims); ok {
			return claims
		}
	}
	return nil
}
