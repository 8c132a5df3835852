package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing-backend/internal/shared"
)

// AdminMiddleware checks if user has admin role
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(shared.RoleAdmin)
}

// RoleMiddleware allows only callers whose role is in the given list.
// Must run after AuthMiddleware.
func RoleMiddleware(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleInterface, exists := c.Get("role")
		if !exists {
			forbidden(c)
			return
		}

		role, ok := roleInterface.(string)
		if !ok {
			forbidden(c)
			return
		}

		for _, a := range allowed {
			if role == a {
				c.Next()
				return
			}
		}

		forbidden(c)
	}
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   "Access denied: insufficient role",
	})
	c.Abort()
}
