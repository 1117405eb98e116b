// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/checkout"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/middleware"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	sessions    *checkout.Manager
	carts       *cart.Registry
	logger      logrus.FieldLogger
	callTimeout time.Duration
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(sessions *checkout.Manager, carts *cart.Registry, logger logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions:    sessions,
		carts:       carts,
		logger:      logger.WithField("handler", "checkout"),
		callTimeout: time.Minute,
	}
}

// SubmitRequest selects the payment method of a checkout
type SubmitRequest struct {
	PaymentMethod  payment.Method    `json:"payment_method"`
	PaymentDetails map[string]string `json:"payment_details"`
}

// CompleteRequest carries optional details for completing a verified payment
type CompleteRequest struct {
	PaymentDetails map[string]string `json:"payment_details"`
}

// Begin handles POST /checkout
func (h *CheckoutHandler) Begin(c *gin.Context) {
	var req checkout.BeginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}
	if req.Mode == "" {
		req.Mode = checkout.ModeCart
	}

	r := &responder{}
	owner := middleware.Owner(c)
	lease := h.carts.Acquire(owner)
	session, err := h.sessions.Begin(owner, uiFor(c, r), req, lease)
	if err != nil {
		lease.Release()
		r.Error(apperror.UserMessage(err))
		h.respond(c, r, nil, err)
		return
	}

	middleware.SetCheckoutID(c, session.ID())
	c.JSON(http.StatusCreated, r.body(session.Snapshot()))
}

// GetCheckout handles GET /checkout/:id
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, &responder{}, session.Snapshot(), nil)
}

// Proceed handles POST /checkout/:id/proceed
func (h *CheckoutHandler) Proceed(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	r := &responder{}
	snap, err := session.Proceed(uiFor(c, r))
	h.respond(c, r, snap, err)
}

// Submit handles POST /checkout/:id/submit
func (h *CheckoutHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	ctx, cancel := h.upstreamContext(c)
	defer cancel()

	r := &responder{}
	snap, err := session.Submit(ctx, uiFor(c, r), req.PaymentMethod, req.PaymentDetails)
	h.finish(c, session, r, snap, err)
}

// ConfirmTransfer handles POST /checkout/:id/confirm-transfer
func (h *CheckoutHandler) ConfirmTransfer(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	ctx, cancel := h.upstreamContext(c)
	defer cancel()

	r := &responder{}
	snap, err := session.ConfirmTransfer(ctx, uiFor(c, r))
	h.respond(c, r, snap, err)
}

// Complete handles POST /checkout/:id/complete
func (h *CheckoutHandler) Complete(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": err.Error(),
			})
			return
		}
	}

	ctx, cancel := h.upstreamContext(c)
	defer cancel()

	r := &responder{}
	snap, err := session.CompleteOrder(ctx, uiFor(c, r), req.PaymentDetails)
	h.finish(c, session, r, snap, err)
}

// Retry handles POST /checkout/:id/retry
func (h *CheckoutHandler) Retry(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	r := &responder{}
	snap, err := session.Retry(uiFor(c, r))
	h.respond(c, r, snap, err)
}

// Restart handles POST /checkout/:id/restart
func (h *CheckoutHandler) Restart(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	r := &responder{}
	snap, err := session.Restart(uiFor(c, r))
	h.respond(c, r, snap, err)
}

// Leave handles DELETE /checkout/:id
func (h *CheckoutHandler) Leave(c *gin.Context) {
	if err := h.sessions.Leave(c.Param("id"), middleware.Owner(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout ended",
	})
}

// finish responds and drops the session once it is confirmed
func (h *CheckoutHandler) finish(c *gin.Context, session *checkout.Session, r *responder, snap checkout.Snapshot, err error) {
	if err == nil && snap.Step == checkout.StepConfirmed {
		if leaveErr := h.sessions.Leave(session.ID(), middleware.Owner(c)); leaveErr != nil {
			h.logger.WithError(leaveErr).Debug("Confirmed checkout already dropped")
		}
	}
	h.respond(c, r, snap, err)
}

func (h *CheckoutHandler) respond(c *gin.Context, r *responder, data interface{}, err error) {
	status := http.StatusOK
	if err != nil {
		status = apperror.HTTPStatus(err)
	}
	body := r.body(data)
	if err != nil {
		body["error"] = apperror.UserMessage(err)
	}
	c.JSON(status, body)
}

func (h *CheckoutHandler) session(c *gin.Context) (*checkout.Session, bool) {
	session, err := h.sessions.Get(c.Param("id"), middleware.Owner(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	middleware.SetCheckoutID(c, session.ID())
	return session, true
}

// upstreamContext forwards the shopper's token to the Order/Payment service.
// Payment calls run to completion when the client goes away, bounded by
// callTimeout; the session keeps the result for the next request.
func (h *CheckoutHandler) upstreamContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.callTimeout)
	return payment.WithAccessToken(ctx, middleware.GetAccessTokenFromContext(c)), cancel
}
