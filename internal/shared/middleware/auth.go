package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ticketing-backend/internal/shared"
)

// ContextKeyActor is the gin context key the authenticated caller is
// stored under.
const ContextKeyActor = "actor"

// AuthMiddleware verifies the JWT bearer token and stores the caller
// as a shared.Actor in the gin context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}
		token := parts[1]

		claims := jwt.MapClaims{}
		parsedToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})

		if err != nil || !parsedToken.Valid {
			c.JSON(401, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			c.JSON(401, gin.H{"error": "invalid user ID in token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid UUID format"})
			c.Abort()
			return
		}

		actor := shared.Actor{UserID: userID}
		if email, ok := claims["email"].(string); ok {
			actor.Email = email
		}
		if role, ok := claims["role"].(string); ok {
			actor.Role = role
		} else {
			actor.Role = shared.RoleUser
		}

		c.Set("userID", userID)
		c.Set("role", actor.Role)
		c.Set(ContextKeyActor, actor)

		c.Next()
	}
}

// ActorFromContext returns the authenticated caller stored by
// AuthMiddleware. The bool is false on unauthenticated routes.
func ActorFromContext(c *gin.Context) (shared.Actor, bool) {
	v, exists := c.Get(ContextKeyActor)
	if !exists {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}
