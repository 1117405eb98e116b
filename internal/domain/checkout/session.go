// internal/domain/checkout/session.go
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// Messages shown to the shopper
const (
	msgLoginRequired    = "Please log in to complete your purchase"
	msgSelectMethod     = "Please select a payment method"
	msgCartEmpty        = "Your cart is empty"
	msgInFlight         = "Your payment is already being processed"
	msgStepUnavailable  = "This action is not available at the current checkout step"
	msgSessionEnded     = "This checkout has ended, please start again"
	msgScanToPay        = "Scan the QR code to transfer the payment, then confirm once you have paid"
	msgTransferPending  = "We have not received your transfer yet. Please wait a moment and check again"
	msgTransferReceived = "Transfer received. You can now complete your order"
	msgEnrolled         = "Payment successful! You are now enrolled"
)

var errStale = apperror.Conflict("The checkout changed while your request was processed")

// Session is one checkout attempt. All state changes happen under mu; network
// calls run with mu released and are applied only if the session still matches
// the ticket taken when the call started.
type Session struct {
	mu       sync.Mutex
	orch     *Orchestrator
	id       string
	owner    string
	mode     Mode
	courseID int64
	cart     Cart
	billing  payment.BillingInfo
	state    state
	attempt  int
	inFlight bool
	closed   bool
	lastSeen time.Time
	logger   logrus.FieldLogger
}

// ticket identifies the session state a network call was started from
type ticket struct {
	attempt   int
	step      Step
	paymentID string
}

// Snapshot is the read model of a session
type Snapshot struct {
	ID             string                 `json:"id"`
	Mode           Mode                   `json:"mode"`
	Step           Step                   `json:"step"`
	CourseID       int64                  `json:"course_id,omitempty"`
	BillingInfo    payment.BillingInfo    `json:"billing_info"`
	PaymentMethod  payment.Method         `json:"payment_method,omitempty"`
	PaymentID      string                 `json:"payment_id,omitempty"`
	TransactionRef string                 `json:"transaction_ref,omitempty"`
	Verified       bool                   `json:"verified"`
	InFlight       bool                   `json:"in_flight"`
	Items          []cart.CartItem        `json:"items,omitempty"`
	Total          decimal.Decimal        `json:"total"`
	Currency       string                 `json:"currency"`
	Intent         *payment.PaymentIntent `json:"intent,omitempty"`
	Transfer       *TransferInstructions  `json:"transfer,omitempty"`
	FailureReason  string                 `json:"failure_reason,omitempty"`
	Actions        []string               `json:"actions"`
}

func (s *Session) ID() string { return s.id }

// Snapshot returns the current session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Mode:        s.mode,
		Step:        s.state.step(),
		CourseID:    s.courseID,
		BillingInfo: s.billing,
		InFlight:    s.inFlight,
		Currency:    s.orch.opts.Currency,
		Total:       decimal.Zero,
		Actions:     actions[s.state.step()],
	}
	if s.closed {
		snap.Actions = []string{}
	}

	if s.mode == ModeCart && s.cart != nil && s.state.step() != StepConfirmed {
		cs := s.cart.Snapshot()
		snap.Items = cs.Items
		snap.Total = cs.Total
	}

	if intent := intentOf(s.state); intent != nil {
		copied := *intent
		snap.Intent = &copied
		snap.PaymentID = intent.PaymentID
		snap.PaymentMethod = intent.PaymentMethod
		snap.Total = intent.TotalAmount
		snap.Currency = intent.Currency
	}

	switch v := s.state.(type) {
	case awaitingTransfer:
		transfer := v.transfer
		snap.Transfer = &transfer
	case readyToComplete:
		transfer := v.transfer
		snap.Transfer = &transfer
		snap.Verified = true
	case confirmed:
		snap.TransactionRef = v.transactionRef
		snap.Verified = true
	case failed:
		snap.FailureReason = v.reason
	}

	return snap
}

// Proceed moves from cart review to payment selection
func (s *Session) Proceed(ui UI) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkLocked(StepReviewingCart); err != nil {
		return s.rejectLocked(ui, err)
	}
	if s.cart == nil || s.cart.Snapshot().Count == 0 {
		return s.rejectLocked(ui, apperror.Validation(msgCartEmpty))
	}

	if ui.Auth.IsAuthenticated {
		s.billing = BillingFromUser(ui.Auth.User)
	}
	if err := s.transitionLocked(selectingPayment{}); err != nil {
		return s.rejectLocked(ui, err)
	}
	return s.snapshotLocked(), nil
}

// Submit places the order with the selected method. Card payments are
// completed immediately; QR payments wait for the shopper's transfer.
func (s *Session) Submit(ctx context.Context, ui UI, method payment.Method, details map[string]string) (Snapshot, error) {
	s.mu.Lock()
	s.touch()
	if err := s.checkLocked(StepSelectingPayment); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, err)
	}
	if err := s.gateLocked(ui); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, err)
	}
	if !method.Valid() {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, apperror.Validation(msgSelectMethod))
	}

	current := s.state.(selectingPayment)
	intent, items := current.pending, current.ordered
	if intent != nil && intent.PaymentMethod != method {
		intent, items = nil, nil
	}

	if intent == nil {
		total := decimal.Zero
		if s.mode == ModeCart {
			cs := s.cart.Snapshot()
			if cs.Count == 0 {
				defer s.mu.Unlock()
				return s.rejectLocked(ui, apperror.Validation(msgCartEmpty))
			}
			items = cs.Items
			total = cs.Total
		}

		t := s.startLocked()
		billing := s.billing
		s.mu.Unlock()

		s.logger.WithField("payment_method", method).Info("Creating order")
		result, err := s.createOrder(ctx, billing, method, items, total)
		if err == nil && s.mode == ModeEnrollNow && !result.TotalAmount.IsPositive() {
			// Enroll-now has no local price to fall back on
			err = apperror.Shape("totalAmount")
		}

		s.mu.Lock()
		if !s.settleLocked(t) {
			defer s.mu.Unlock()
			return s.staleLocked(t)
		}
		if err != nil {
			defer s.mu.Unlock()
			return s.failLocked(ui, err, nil)
		}

		issued := result.Intent(total, s.orch.opts.Currency, method)
		s.logger.WithField("payment_id", issued.PaymentID).Info("Order created")

		if method == payment.MethodQR {
			err := s.transitionLocked(awaitingTransfer{
				intent:   issued,
				transfer: s.orch.opts.transferFor(issued),
				ordered:  items,
			})
			if err != nil {
				defer s.mu.Unlock()
				return s.rejectLocked(ui, err)
			}
			snap := s.snapshotLocked()
			s.mu.Unlock()
			ui.feedback().Info(msgScanToPay)
			return snap, nil
		}

		if err := s.transitionLocked(selectingPayment{pending: &issued, ordered: items}); err != nil {
			defer s.mu.Unlock()
			return s.rejectLocked(ui, err)
		}
		intent = &issued
	}

	return s.completeLocked(ctx, ui, *intent, details, items)
}

// ConfirmTransfer runs the verifier for a QR payment. An unverified transfer
// leaves the session waiting and is reported as information, not an error.
func (s *Session) ConfirmTransfer(ctx context.Context, ui UI) (Snapshot, error) {
	s.mu.Lock()
	s.touch()
	if err := s.checkLocked(StepAwaitingTransfer); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, err)
	}
	if err := s.gateLocked(ui); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, err)
	}

	waiting := s.state.(awaitingTransfer)
	t := s.startLocked()
	s.mu.Unlock()

	result, err := s.orch.verifier.Verify(ctx, waiting.intent.PaymentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.settleLocked(t) {
		return s.staleLocked(t)
	}
	if err != nil {
		// Verification failures never end the attempt
		s.logger.WithError(err).Warn("Transfer verification failed")
		ui.feedback().Error(apperror.UserMessage(err))
		return s.snapshotLocked(), err
	}
	if !result.Verified {
		ui.feedback().Info(msgTransferPending)
		return s.snapshotLocked(), nil
	}

	next := readyToComplete{intent: waiting.intent, transfer: waiting.transfer, ordered: waiting.ordered}
	if err := s.transitionLocked(next); err != nil {
		return s.rejectLocked(ui, err)
	}
	ui.feedback().Success(msgTransferReceived)
	return s.snapshotLocked(), nil
}

// CompleteOrder finalizes a verified QR payment
func (s *Session) CompleteOrder(ctx context.Context, ui UI, details map[string]string) (Snapshot, error) {
	s.mu.Lock()
	s.touch()
	if err := s.checkLocked(StepReadyToComplete); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, err)
	}
	if err := s.gateLocked(ui); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, err)
	}

	ready := s.state.(readyToComplete)
	return s.completeLocked(ctx, ui, ready.intent, details, ready.ordered)
}

// completeLocked calls completePayment for intent, ordered for items. Caller
// holds mu; it is released before returning.
func (s *Session) completeLocked(ctx context.Context, ui UI, intent payment.PaymentIntent, details map[string]string, items []cart.CartItem) (Snapshot, error) {
	t := s.startLocked()
	s.mu.Unlock()

	s.logger.WithField("payment_id", intent.PaymentID).Info("Completing payment")
	result, err := s.orch.orders.CompletePayment(ctx, payment.CompletePaymentRequest{
		PaymentID:      intent.PaymentID,
		PaymentDetails: details,
	})

	s.mu.Lock()
	if !s.settleLocked(t) {
		defer s.mu.Unlock()
		return s.staleLocked(t)
	}
	if err != nil {
		defer s.mu.Unlock()
		return s.failLocked(ui, err, &intent)
	}

	if err := s.transitionLocked(confirmed{intent: intent, transactionRef: result.TransactionRef}); err != nil {
		defer s.mu.Unlock()
		return s.rejectLocked(ui, err)
	}
	if s.mode == ModeCart && s.cart != nil {
		// Courses added during the transfer stay in the cart
		for _, item := range items {
			s.cart.Remove(item.ID)
		}
	}
	receipt := s.orch.receiptFor(s, ui, intent, result.TransactionRef, items)
	snap := s.snapshotLocked()
	log := s.logger.WithField("transaction_ref", result.TransactionRef)
	s.mu.Unlock()

	log.Info("Checkout confirmed")
	s.orch.deliverReceipt(ctx, receipt, log)
	ui.navigator().GoTo(s.orch.opts.LearningPath)
	ui.feedback().Success(msgEnrolled)

	return snap, nil
}

// Retry returns a failed attempt to payment selection
func (s *Session) Retry(ui UI) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkLocked(StepFailed); err != nil {
		return s.rejectLocked(ui, err)
	}
	s.attempt++
	if err := s.transitionLocked(selectingPayment{}); err != nil {
		return s.rejectLocked(ui, err)
	}
	return s.snapshotLocked(), nil
}

// Restart abandons the current payment attempt and starts a fresh one.
// Responses still in flight for the old attempt are discarded when they arrive.
func (s *Session) Restart(ui UI) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.closed {
		return s.rejectLocked(ui, apperror.NotFound(msgSessionEnded))
	}
	step := s.state.step()
	if step != StepSelectingPayment && step != StepAwaitingTransfer && step != StepReadyToComplete {
		return s.rejectLocked(ui, apperror.Conflict(msgStepUnavailable))
	}

	s.attempt++
	s.inFlight = false
	if err := s.transitionLocked(selectingPayment{}); err != nil {
		return s.rejectLocked(ui, err)
	}
	return s.snapshotLocked(), nil
}

// Leave ends the session. A submitted order is not rolled back; late
// responses are ignored.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.attempt++
	s.inFlight = false
	s.closed = true
	if lease, ok := s.cart.(releaser); ok {
		lease.Release()
	}
	s.logger.WithField("step", s.state.step()).Info("Checkout left")
}

func (s *Session) createOrder(ctx context.Context, billing payment.BillingInfo, method payment.Method, items []cart.CartItem, total decimal.Decimal) (*payment.OrderResult, error) {
	if s.mode == ModeEnrollNow {
		return s.orch.orders.EnrollNow(ctx, payment.EnrollNowRequest{
			CourseID:      s.courseID,
			BillingInfo:   billing,
			PaymentMethod: method,
		})
	}

	courses := make([]payment.OrderCourse, len(items))
	for i, item := range items {
		courses[i] = payment.OrderCourse{ID: item.ID, Title: item.Title, Price: item.Price}
	}
	return s.orch.orders.CreateOrder(ctx, payment.CreateOrderRequest{
		Courses:       courses,
		BillingInfo:   billing,
		PaymentMethod: method,
		TotalAmount:   total,
	})
}

// checkLocked rejects actions on closed sessions, during another call, or
// from the wrong step
func (s *Session) checkLocked(step Step) error {
	if s.closed {
		return apperror.NotFound(msgSessionEnded)
	}
	if s.inFlight {
		return apperror.Conflict(msgInFlight)
	}
	if s.state.step() != step {
		return apperror.Conflict(msgStepUnavailable)
	}
	return nil
}

// gateLocked enforces authentication and billing completeness before any
// network call
func (s *Session) gateLocked(ui UI) error {
	if !ui.Auth.IsAuthenticated {
		ui.navigator().GoTo(s.orch.opts.LoginPath)
		return apperror.Validation(msgLoginRequired)
	}
	s.billing = BillingFromUser(ui.Auth.User)
	return s.billing.Validate()
}

func (s *Session) startLocked() ticket {
	s.inFlight = true
	return ticket{
		attempt:   s.attempt,
		step:      s.state.step(),
		paymentID: paymentIDOf(s.state),
	}
}

// settleLocked ends the call for t and reports whether its result may be applied
func (s *Session) settleLocked(t ticket) bool {
	if t.attempt == s.attempt {
		s.inFlight = false
	}
	return !s.closed &&
		t.attempt == s.attempt &&
		t.step == s.state.step() &&
		t.paymentID == paymentIDOf(s.state)
}

func (s *Session) staleLocked(t ticket) (Snapshot, error) {
	s.logger.WithFields(logrus.Fields{
		"ticket_attempt": t.attempt,
		"ticket_step":    t.step,
		"payment_id":     t.paymentID,
	}).Warn("Discarding stale checkout response")
	return s.snapshotLocked(), errStale
}

// failLocked applies the error policy: network errors keep the current state so
// the shopper can retry, business and shape errors end the attempt.
func (s *Session) failLocked(ui UI, err error, intent *payment.PaymentIntent) (Snapshot, error) {
	kind := apperror.KindOf(err)
	log := s.logger.WithError(err).WithField("kind", kind)

	switch kind {
	case apperror.KindBusiness, apperror.KindResponseShape:
		log.Warn("Checkout attempt failed")
		// An illegal transition is logged by transitionLocked; the call error
		// is still the one reported
		_ = s.transitionLocked(failed{reason: apperror.UserMessage(err), kind: kind, intent: intent})
	default:
		log.Warn("Checkout call failed, state kept")
	}

	ui.feedback().Error(apperror.UserMessage(err))
	return s.snapshotLocked(), err
}

func (s *Session) rejectLocked(ui UI, err error) (Snapshot, error) {
	s.logger.WithError(err).Debug("Checkout action rejected")
	ui.feedback().Error(apperror.UserMessage(err))
	return s.snapshotLocked(), err
}

func (s *Session) transitionLocked(next state) error {
	from := s.state.step()
	if err := checkTransition(from, next.step()); err != nil {
		s.logger.WithError(err).Error("Rejected checkout transition")
		return err
	}
	s.state = next
	if from != next.step() {
		s.logger.WithFields(logrus.Fields{
			"from": from,
			"to":   next.step(),
		}).Info("Checkout step changed")
	}
	return nil
}

func (s *Session) touch() {
	s.lastSeen = s.orch.now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
