// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/middleware"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	carts     *cart.Registry
	logger    logrus.FieldLogger
	keepAlive time.Duration
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Registry, logger logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:     carts,
		logger:    logger.WithField("handler", "cart"),
		keepAlive: 25 * time.Second,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    h.store(c).Snapshot(),
	})
}

// GetCartCount handles GET /cart/count
func (h *CartHandler) GetCartCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Cart count retrieved successfully",
		"data": gin.H{
			"count": h.store(c).Count(),
		},
	})
}

// AddToCart handles POST /cart/items. Adding a course already in the cart
// succeeds with added=false.
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req cart.CartItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Price cannot be negative",
		})
		return
	}

	store := h.store(c)
	added := store.Add(req)

	message := "Course added to cart"
	if !added {
		message = "Course is already in your cart"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data": gin.H{
			"added": added,
			"cart":  store.Snapshot(),
		},
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid course ID",
		})
		return
	}

	store := h.store(c)
	removed := store.Remove(courseID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
		"data": gin.H{
			"removed": removed,
			"cart":    store.Snapshot(),
		},
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	store := h.store(c)
	store.Clear()

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
		"data":    store.Snapshot(),
	})
}

// MergeCart handles POST /cart/merge (after login)
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	store, added := h.carts.MergeGuest(middleware.GetSessionIDFromContext(c), userID)
	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"added":   added,
	}).Info("Guest cart merged")

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart merged successfully",
		"data": gin.H{
			"added": added,
			"cart":  store.Snapshot(),
		},
	})
}

// StreamCart handles GET /cart/events. Every cart change is pushed as a
// "cart" event carrying the new snapshot.
func (h *CartHandler) StreamCart(c *gin.Context) {
	lease := h.carts.Acquire(middleware.Owner(c))
	defer lease.Release()
	store := lease.Store

	updates := make(chan cart.Snapshot, 16)
	unsubscribe := store.Subscribe(func(snap cart.Snapshot) {
		select {
		case updates <- snap:
		default:
			// Drop when the client lags behind
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.WithError(err).Debug("Cart stream keeps the server write deadline")
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("cart", store.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap := <-updates:
			c.SSEvent("cart", snap)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

// store returns the signed-in shopper's cart, or the guest session's
func (h *CartHandler) store(c *gin.Context) *cart.Store {
	return h.carts.Get(middleware.Owner(c))
}
