// internal/domain/checkout/state.go
package checkout

import (
	"fmt"

	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// Mode is the entry point a checkout was started from
type Mode string

const (
	ModeCart      Mode = "cart"
	ModeEnrollNow Mode = "enroll_now"
)

// Step names the state a checkout session is in
type Step string

const (
	StepReviewingCart    Step = "reviewing_cart"
	StepSelectingPayment Step = "selecting_payment"
	StepAwaitingTransfer Step = "awaiting_transfer"
	StepReadyToComplete  Step = "ready_to_complete"
	StepConfirmed        Step = "confirmed"
	StepFailed           Step = "failed"
)

// Actions a client may offer in each step
const (
	ActionProceed         = "proceed"
	ActionSubmit          = "submit"
	ActionConfirmTransfer = "confirm_transfer"
	ActionComplete        = "complete"
	ActionRetry           = "retry"
	ActionRestart         = "restart"
	ActionLeave           = "leave"
)

// state is one variant of the checkout state machine. Each variant carries
// only the data that is valid while the session is in it.
type state interface {
	step() Step
}

type reviewingCart struct{}

// selectingPayment may hold an intent already issued for a card attempt whose
// completion call failed in transit; resubmitting reuses it together with the
// items it was ordered for.
type selectingPayment struct {
	pending *payment.PaymentIntent
	ordered []cart.CartItem
}

// awaitingTransfer and readyToComplete keep the items the order was created
// for. The cart may change while the shopper transfers.
type awaitingTransfer struct {
	intent   payment.PaymentIntent
	transfer TransferInstructions
	ordered  []cart.CartItem
}

type readyToComplete struct {
	intent   payment.PaymentIntent
	transfer TransferInstructions
	ordered  []cart.CartItem
}

type confirmed struct {
	intent         payment.PaymentIntent
	transactionRef string
}

type failed struct {
	reason string
	kind   apperror.Kind
	intent *payment.PaymentIntent
}

func (reviewingCart) step() Step    { return StepReviewingCart }
func (selectingPayment) step() Step { return StepSelectingPayment }
func (awaitingTransfer) step() Step { return StepAwaitingTransfer }
func (readyToComplete) step() Step  { return StepReadyToComplete }
func (confirmed) step() Step        { return StepConfirmed }
func (failed) step() Step           { return StepFailed }

var transitions = map[Step][]Step{
	StepReviewingCart:    {StepSelectingPayment},
	StepSelectingPayment: {StepSelectingPayment, StepAwaitingTransfer, StepConfirmed, StepFailed},
	StepAwaitingTransfer: {StepReadyToComplete, StepSelectingPayment},
	StepReadyToComplete:  {StepConfirmed, StepFailed, StepSelectingPayment},
	StepFailed:           {StepSelectingPayment},
	StepConfirmed:        {},
}

var actions = map[Step][]string{
	StepReviewingCart:    {ActionProceed, ActionLeave},
	StepSelectingPayment: {ActionSubmit, ActionRestart, ActionLeave},
	StepAwaitingTransfer: {ActionConfirmTransfer, ActionRestart, ActionLeave},
	StepReadyToComplete:  {ActionComplete, ActionRestart, ActionLeave},
	StepFailed:           {ActionRetry, ActionLeave},
	StepConfirmed:        {},
}

// IllegalTransitionError reports a move the state machine does not allow
type IllegalTransitionError struct {
	From Step
	To   Step
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal checkout transition from %s to %s", e.From, e.To)
}

// checkTransition returns a Conflict wrapping IllegalTransitionError when the
// move is not in the table
func checkTransition(from, to Step) error {
	if canTransition(from, to) {
		return nil
	}
	return apperror.Wrap(apperror.KindConflict, msgStepUnavailable, &IllegalTransitionError{From: from, To: to})
}

func canTransition(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// intentOf returns the payment intent carried by s, if any
func intentOf(s state) *payment.PaymentIntent {
	switch v := s.(type) {
	case selectingPayment:
		return v.pending
	case awaitingTransfer:
		return &v.intent
	case readyToComplete:
		return &v.intent
	case confirmed:
		return &v.intent
	case failed:
		return v.intent
	}
	return nil
}

func paymentIDOf(s state) string {
	if intent := intentOf(s); intent != nil {
		return intent.PaymentID
	}
	return ""
}
