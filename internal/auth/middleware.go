package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which the middleware stores the authenticated admin.
const (
	ContextKeyAdminID      = "admin_id"
	ContextKeyAdminEmail   = "admin_email"
	ContextKeySuperadmin   = "is_superadmin"
)

// Middleware returns a Gin handler that requires a valid bearer token.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
			return
		}

		claims, err := ValidateToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			msg := "invalid access token"
			if err == ErrTokenExpired {
				msg = "access token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ContextKeyAdminID, claims.AdminID)
		c.Set(ContextKeyAdminEmail, claims.Email)
		c.Set(ContextKeySuperadmin, claims.IsSuperadmin)
		c.Next()
	}
}
