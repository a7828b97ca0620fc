package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsContextKey = "jwt_claims"

// AuthMiddleware validates the bearer token's signature and expiry against
// secretKey/algorithm. It only parses request-time claims; issuing tokens
// and user CRUD are out of scope for this subsystem.
func AuthMiddleware(secretKey, algorithm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != algorithm {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, _ := token.Claims.(jwt.MapClaims)
		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// userIDFromContext extracts the "sub" claim set by AuthMiddleware.
func userIDFromContext(c *gin.Context) string {
	raw, ok := c.Get(claimsContextKey)
	if !ok {
		return ""
	}
	claims, ok := raw.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
