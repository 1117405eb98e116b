// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/handlers"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/middleware"
	"github.com/your-org/elearning-storefront/internal/pkg/auth"
)

// Handlers are the endpoint groups served under /api/v1
type Handlers struct {
	Cart       *handlers.CartHandler
	Checkout   *handlers.CheckoutHandler
	Enrollment *handlers.EnrollmentHandler
}

// Options configure route-level middleware
type Options struct {
	JWT            *auth.JWTManager
	RequestTimeout time.Duration
	SecureCookies  bool
}

// SetupCartRoutes sets up cart related routes
func SetupCartRoutes(rg *gin.RouterGroup, h *handlers.CartHandler, opts Options) {
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(opts.JWT))
	cart.Use(middleware.GuestSession(opts.SecureCookies))

	// Long-lived stream, registered before the request deadline applies
	cart.GET("/events", h.StreamCart)

	cart.Use(middleware.Timeout(opts.RequestTimeout))
	{
		cart.GET("", h.GetCart)
		cart.GET("/count", h.GetCartCount)
		cart.POST("/items", h.AddToCart)
		cart.DELETE("/items/:id", h.RemoveFromCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/merge", middleware.AuthMiddleware(opts.JWT), h.MergeCart)
	}
}

// SetupCheckoutRoutes sets up checkout routes. Authentication is optional so
// the checkout can ask anonymous shoppers to log in.
func SetupCheckoutRoutes(rg *gin.RouterGroup, h *handlers.CheckoutHandler, opts Options) {
	checkout := rg.Group("/checkout")
	checkout.Use(middleware.OptionalAuthMiddleware(opts.JWT))
	checkout.Use(middleware.GuestSession(opts.SecureCookies))
	checkout.Use(middleware.Timeout(opts.RequestTimeout))
	{
		checkout.POST("", h.Begin)
		checkout.GET("/:id", h.GetCheckout)
		checkout.POST("/:id/proceed", h.Proceed)
		checkout.POST("/:id/submit", h.Submit)
		checkout.POST("/:id/confirm-transfer", h.ConfirmTransfer)
		checkout.POST("/:id/complete", h.Complete)
		checkout.POST("/:id/retry", h.Retry)
		checkout.POST("/:id/restart", h.Restart)
		checkout.DELETE("/:id", h.Leave)
	}
}

// SetupEnrollmentRoutes sets up enrollment history routes
func SetupEnrollmentRoutes(rg *gin.RouterGroup, h *handlers.EnrollmentHandler, opts Options) {
	enrollments := rg.Group("/enrollments")
	enrollments.Use(middleware.AuthMiddleware(opts.JWT))
	enrollments.Use(middleware.Timeout(opts.RequestTimeout))
	{
		enrollments.GET("", h.ListEnrollments)
		enrollments.GET("/:ref/receipt.pdf", h.DownloadReceipt)
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, h Handlers, opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	SetupCartRoutes(rg, h.Cart, opts)
	SetupCheckoutRoutes(rg, h.Checkout, opts)
	SetupEnrollmentRoutes(rg, h.Enrollment, opts)
}
