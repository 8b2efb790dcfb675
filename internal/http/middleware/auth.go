// README: Bearer-token auth; extracts actor identity from JWT claims.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"mandado/internal/types"
)

const (
	actorIDKey   = "actorID"
	actorRoleKey = "actorRole"
)

// Auth parses the Authorization header into (actor id, role). The claims are
// trusted fully once the signature checks out; there is no re-authorization
// downstream.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if sub == "" || !types.Role(role).Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		c.Set(actorIDKey, types.ID(sub))
		c.Set(actorRoleKey, types.Role(role))
		c.Next()
	}
}

// Actor returns the authenticated actor for the request.
func Actor(c *gin.Context) (types.ID, types.Role) {
	id, _ := c.Get(actorIDKey)
	role, _ := c.Get(actorRoleKey)
	actorID, _ := id.(types.ID)
	actorRole, _ := role.(types.Role)
	return actorID, actorRole
}
