package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

func TestBillingInfoValidate(t *testing.T) {
	assert.NoError(t, BillingInfo{FirstName: "Ann", Email: "ann@example.com"}.Validate())

	err := BillingInfo{Email: "ann@example.com"}.Validate()
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, apperror.UserMessage(err), "first name")

	err = BillingInfo{FirstName: "Ann", Email: "   "}.Validate()
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, apperror.UserMessage(err), "email")

	err = BillingInfo{FirstName: "Ann", Email: "not-an-email"}.Validate()
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestOrderResultIntentFallbacks(t *testing.T) {
	intent := OrderResult{PaymentID: "p1"}.Intent(decimal.NewFromInt(50), "USD", MethodQR)

	assert.Equal(t, "p1", intent.PaymentID)
	assert.True(t, intent.TotalAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "USD", intent.Currency)
	assert.Equal(t, MethodQR, intent.PaymentMethod)
}
