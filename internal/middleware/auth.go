package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tasktide/internal/constants"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
)

// IdentityResolver turns a session token into the username it was issued for.
type IdentityResolver interface {
	Identity(token string) (string, bool)
}

// RequireAuth checks the bearer token before any handler touches data
func RequireAuth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			apierrors.Respond(c, apierrors.AuthenticationRequired(""))
			return
		}

		username, ok := resolver.Identity(token)
		if !ok {
			apierrors.Respond(c, apierrors.AuthenticationRequired("Invalid or expired token."))
			return
		}

		// Store the identity in context for easy access in handlers
		c.Set(constants.ContextKeyUsername, username)
		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetUsername retrieves the authenticated username from context
func GetUsername(c *gin.Context) (string, bool) {
	username := c.GetString(constants.ContextKeyUsername)
	return username, username != ""
}
