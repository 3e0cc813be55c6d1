package middleware

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
)

// OptionalAuth injects userId and role when a valid token is present and lets
// anonymous requests through. A bad token is logged and ignored.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if errors.Is(err, errMissingToken) {
			c.Next()
			return
		}
		if err != nil {
			log.Println("[AUTH] [WARN] ignoring malformed token:", err)
			c.Next()
			return
		}

		claims, err := ParseToken(secret, raw)
		if err != nil {
			log.Println("[AUTH] [WARN] ignoring invalid token:", err)
			c.Next()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
