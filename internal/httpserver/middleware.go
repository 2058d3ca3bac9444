package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"tortaskeia-api/internal/domain"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// resolveIdentity establishes who the request is for: a bearer token wins,
// otherwise the X-Session-ID header names a guest session. Invalid or
// expired tokens degrade to anonymous rather than failing the request;
// handlers that need a user reject it downstream.
func resolveIdentity(auth AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity domain.Identity

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			user, err := auth.UserFromToken(c.Request.Context(), token)
			switch {
			case err == nil:
				identity.User = user
			case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
				// anonymous
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}
		if identity.User == nil {
			if sessionID := strings.TrimSpace(c.GetHeader("X-Session-ID")); sessionID != "" {
				identity.SessionID = sessionID
			}
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(domain.Identity); ok {
			return identity
		}
	}
	return domain.Identity{}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identityFrom(c).User == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := identityFrom(c).User
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
