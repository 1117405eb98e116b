package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/elearning-storefront/internal/config"
	"github.com/your-org/elearning-storefront/internal/pkg/auth"
	"github.com/your-org/elearning-storefront/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jwtManager() *auth.JWTManager {
	return auth.NewJWTManager(&config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", AccessTokenExpiry: time.Hour},
	})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	m := jwtManager()
	r := gin.New()
	r.GET("/me", AuthMiddleware(m), func(c *gin.Context) {
		profile, ok := GetProfileFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user": profile.UserID, "token": GetAccessTokenFromContext(c) != ""})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	token, err := m.GenerateAccessToken(auth.Profile{UserID: "u1", Email: "a@b.co"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1","token":true}`, w.Body.String())
}

func TestOptionalAuthMiddlewareLetsGuestsThrough(t *testing.T) {
	r := gin.New()
	r.GET("/cart", OptionalAuthMiddleware(jwtManager()), func(c *gin.Context) {
		_, ok := GetUserIDFromContext(c)
		c.String(http.StatusOK, "%v", ok)
	})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer expired-or-bad")
	w := serve(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Body.String())
}

func TestGuestSession(t *testing.T) {
	r := gin.New()
	r.GET("/", GuestSession(false), func(c *gin.Context) {
		c.String(http.StatusOK, "%s", GetSessionIDFromContext(c))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := w.Body.String()
	_, err := uuid.Parse(issued)
	require.NoError(t, err)
	assert.Equal(t, issued, w.Header().Get(SessionHeader))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "session_id="+issued)

	existing := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, existing)
	w = serve(r, req)
	assert.Equal(t, existing, w.Body.String())
	assert.Empty(t, w.Header().Get("Set-Cookie"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: existing})
	assert.Equal(t, existing, serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "../../etc")
	assert.NotEqual(t, "../../etc", serve(r, req).Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "%s", c.GetString("request_id")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	assert.Equal(t, "abc", serve(r, req).Body.String())
}

func TestRequestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeLimit(8))
	r.POST("/", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a long course name"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := gin.New()
	r.Use(RateLimit(2, client, logger.Discard()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	r := gin.New()
	r.Use(RateLimit(1, client, logger.Discard()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestCORS(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{
		CORSAllowedOrigins: []string{"https://academy.example.com", "*.preview.example.com"},
		CORSAllowedMethods: []string{"GET", "POST"},
		CORSAllowedHeaders: []string{"Authorization", SessionHeader},
	}}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://academy.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://academy.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	assert.True(t, isOriginAllowed("https://pr-1.preview.example.com", cfg.Security.CORSAllowedOrigins))
	assert.False(t, isOriginAllowed("https://evilpreview.example.com", cfg.Security.CORSAllowedOrigins))
	assert.False(t, isOriginAllowed("", cfg.Security.CORSAllowedOrigins))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusGatewayTimeout, serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders("Storefront API"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "Storefront API", w.Header().Get("Server"))
}

func TestLoggerTagsRequest(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	m := jwtManager()

	r := gin.New()
	r.Use(RequestID(), GuestSession(false), Logger(log), OptionalAuthMiddleware(m))
	r.POST("/checkout/:id/submit", func(c *gin.Context) {
		SetCheckoutID(c, c.Param("id"))
		c.Status(http.StatusConflict)
	})
	r.GET("/cart", func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := m.GenerateAccessToken(auth.Profile{UserID: "u1", Email: "a@b.co"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/checkout/co-1/submit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(RequestIDHeader, "req-1")
	serve(r, req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, "co-1", entry.Data["checkout_id"])
	assert.Equal(t, "u1", entry.Data["user_id"])
	assert.Equal(t, "user:u1", entry.Data["owner"])
	assert.Equal(t, "/checkout/:id/submit", entry.Data["route"])
	assert.Equal(t, http.StatusConflict, entry.Data["status"])

	hook.Reset()
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := serve(r, req)

	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "guest:"+w.Header().Get(SessionHeader), entry.Data["owner"])
	assert.NotContains(t, entry.Data, "checkout_id")
	assert.NotContains(t, entry.Data, "user_id")
}
