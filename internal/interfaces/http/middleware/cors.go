// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/elearning-storefront/internal/config"
)

// originPolicy is the parsed form of CORS_ALLOWED_ORIGINS
type originPolicy struct {
	anyOrigin bool
	exact     map[string]struct{}
	suffixes  []string // ".preview.example.com" for "*.preview.example.com"
}

func newOriginPolicy(allowed []string) originPolicy {
	p := originPolicy{exact: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
			p.anyOrigin = true
		case strings.HasPrefix(origin, "*."):
			p.suffixes = append(p.suffixes, origin[1:])
		case origin != "":
			p.exact[origin] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.anyOrigin {
		return true
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// CORS lets the storefront frontends call the API with credentials. The
// allowed origin is echoed back since credentialed requests cannot use *.
func CORS(cfg *config.Config) gin.HandlerFunc {
	policy := newOriginPolicy(cfg.Security.CORSAllowedOrigins)
	methods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	headers := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")
	exposed := SessionHeader + ", " + RequestIDHeader

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Writer.Header().Add("Vary", "Origin")

		if policy.allows(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", exposed)
		}

		if c.Request.Method == http.MethodOptions {
			if policy.allows(origin) {
				c.Header("Access-Control-Allow-Methods", methods)
				c.Header("Access-Control-Allow-Headers", headers)
				c.Header("Access-Control-Max-Age", "86400")
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	return newOriginPolicy(allowedOrigins).allows(origin)
}
