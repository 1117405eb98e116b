// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/elearning-storefront/internal/pkg/auth"
)

const (
	userIDKey      = "user_id"
	profileKey     = "user_profile"
	accessTokenKey = "access_token"
)

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		setIdentity(c, claims, tokenString)
		c.Next()
	}
}

// OptionalAuthMiddleware provides optional authentication. Requests with a
// missing or invalid token continue as guests.
func OptionalAuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		setIdentity(c, claims, tokenString)
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *auth.Claims, token string) {
	c.Set(userIDKey, claims.UserID)
	c.Set(profileKey, claims.Profile())
	c.Set(accessTokenKey, token)
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	return userID, userID != ""
}

// GetProfileFromContext returns the authenticated shopper profile
func GetProfileFromContext(c *gin.Context) (auth.Profile, bool) {
	v, exists := c.Get(profileKey)
	if !exists {
		return auth.Profile{}, false
	}
	profile, ok := v.(auth.Profile)
	return profile, ok
}

// GetAccessTokenFromContext returns the bearer token of the request, if it was valid
func GetAccessTokenFromContext(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}
