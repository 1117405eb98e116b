// internal/interfaces/http/middleware/logger.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
)

const checkoutIDKey = "checkout_id"

// Logger writes one access log line per request, tagged with who made it
// and which checkout it touched
func Logger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
			"owner":      Owner(c),
		}
		if userID, ok := GetUserIDFromContext(c); ok {
			fields["user_id"] = userID
		}
		if checkoutID := c.GetString(checkoutIDKey); checkoutID != "" {
			fields[checkoutIDKey] = checkoutID
		}
		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request served")
		}
	}
}

// Owner is the cart and checkout owner key of the caller: the signed-in
// user, else the guest session
func Owner(c *gin.Context) string {
	if userID, ok := GetUserIDFromContext(c); ok {
		return cart.UserOwner(userID)
	}
	return cart.GuestOwner(GetSessionIDFromContext(c))
}

// SetCheckoutID tags the request with the checkout session it acted on
func SetCheckoutID(c *gin.Context, id string) {
	c.Set(checkoutIDKey, id)
}
