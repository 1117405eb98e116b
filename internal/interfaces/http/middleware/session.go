// internal/interfaces/http/middleware/session.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	sessionCookie = "session_id"
	sessionKey    = "session_id"
)

// GuestSession identifies anonymous shoppers. The id comes from the
// X-Session-ID header or the session cookie, and a new one is issued when
// neither is present.
func GuestSession(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sessionID == "" {
			sessionID, _ = c.Cookie(sessionCookie)
		}
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
			c.SetCookie(sessionCookie, sessionID, 30*86400, "/", "", secureCookie, true)
		}

		c.Set(sessionKey, sessionID)
		c.Header(SessionHeader, sessionID)
		c.Next()
	}
}

// GetSessionIDFromContext returns the guest session id
func GetSessionIDFromContext(c *gin.Context) string {
	return c.GetString(sessionKey)
}
