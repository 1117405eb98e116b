package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		from Step
		to   Step
		want bool
	}{
		{StepReviewingCart, StepSelectingPayment, true},
		{StepReviewingCart, StepConfirmed, false},
		{StepSelectingPayment, StepAwaitingTransfer, true},
		{StepSelectingPayment, StepConfirmed, true},
		{StepSelectingPayment, StepReadyToComplete, false},
		{StepAwaitingTransfer, StepReadyToComplete, true},
		{StepAwaitingTransfer, StepConfirmed, false},
		{StepAwaitingTransfer, StepFailed, false},
		{StepReadyToComplete, StepConfirmed, true},
		{StepReadyToComplete, StepFailed, true},
		{StepFailed, StepSelectingPayment, true},
		{StepFailed, StepConfirmed, false},
		{StepConfirmed, StepSelectingPayment, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, canTransition(tt.from, tt.to))
		})
	}
}

func TestEveryStepHasActions(t *testing.T) {
	for step := range transitions {
		_, ok := actions[step]
		assert.True(t, ok, step)
	}
	assert.Empty(t, actions[StepConfirmed])
}

func TestIntentOf(t *testing.T) {
	intent := payment.PaymentIntent{PaymentID: "p1"}

	assert.Nil(t, intentOf(reviewingCart{}))
	assert.Nil(t, intentOf(selectingPayment{}))
	assert.Equal(t, "p1", paymentIDOf(selectingPayment{pending: &intent}))
	assert.Equal(t, "p1", paymentIDOf(awaitingTransfer{intent: intent}))
	assert.Equal(t, "p1", paymentIDOf(confirmed{intent: intent}))
	assert.Empty(t, paymentIDOf(failed{}))
}

func TestBillingFromUser(t *testing.T) {
	info := BillingFromUser(User{Email: " ann@example.com ", FullName: "  Ann   Marie Lee "})

	assert.Equal(t, "Ann", info.FirstName)
	assert.Equal(t, "Marie Lee", info.LastName)
	assert.Equal(t, "ann@example.com", info.Email)

	assert.Empty(t, BillingFromUser(User{}).FirstName)
}
