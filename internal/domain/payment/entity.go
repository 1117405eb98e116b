// internal/domain/payment/entity.go
package payment

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// Method is the payment method a shopper selects at checkout
type Method string

const (
	MethodQR   Method = "qr"
	MethodCard Method = "card"
)

// Valid reports whether m is a supported payment method
func (m Method) Valid() bool {
	return m == MethodQR || m == MethodCard
}

// Signal fields identify a usable payload in an upstream response
const (
	SignalPaymentID      = "paymentId"
	SignalTransactionRef = "transactionRef"
)

// BillingInfo is resolved from the shopper's profile at checkout entry
type BillingInfo struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country"`
	ZipCode   string `json:"zipCode"`
}

var validate = validator.New()

// Validate checks the fields required before an order may be placed
func (b BillingInfo) Validate() error {
	b.FirstName = strings.TrimSpace(b.FirstName)
	b.Email = strings.TrimSpace(b.Email)

	err := validate.Struct(b)
	if err == nil {
		return nil
	}

	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "FirstName":
			return apperror.Validation("Please add your first name to your profile before checking out")
		case "Email":
			if fieldErrs[0].Tag() == "email" {
				return apperror.Validation("Your profile email address is not valid")
			}
			return apperror.Validation("Please add an email address to your profile before checking out")
		}
	}
	return apperror.Wrap(apperror.KindValidation, "Billing information is incomplete", err)
}

// FullName joins first and last name
func (b BillingInfo) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// OrderCourse is one course line sent to the Order service
type OrderCourse struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// CreateOrderRequest creates an order for every course in the cart
type CreateOrderRequest struct {
	Courses       []OrderCourse   `json:"courses"`
	BillingInfo   BillingInfo     `json:"billingInfo"`
	PaymentMethod Method          `json:"paymentMethod"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// EnrollNowRequest creates an order for a single course, bypassing the cart
type EnrollNowRequest struct {
	CourseID      int64       `json:"courseId"`
	BillingInfo   BillingInfo `json:"billingInfo"`
	PaymentMethod Method      `json:"paymentMethod"`
}

// CompletePaymentRequest finalizes the payment for an issued paymentId
type CompletePaymentRequest struct {
	PaymentID      string            `json:"paymentId"`
	PaymentDetails map[string]string `json:"paymentDetails,omitempty"`
}

// PaymentIntent is the backend handle for one in-progress payment attempt
type PaymentIntent struct {
	PaymentID     string          `json:"payment_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	PaymentMethod Method          `json:"payment_method"`
}

// OrderResult is the normalized result of createOrder and enrollNow
type OrderResult struct {
	PaymentID     string          `json:"-"`
	OrderID       string          `json:"-"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Currency      string          `json:"currency,omitempty"`
	PaymentMethod Method          `json:"paymentMethod,omitempty"`
}

// Intent converts the result into the intent held by the checkout session.
// Missing amount and currency fall back to the locally computed values.
func (r OrderResult) Intent(fallbackAmount decimal.Decimal, fallbackCurrency string, method Method) PaymentIntent {
	intent := PaymentIntent{
		PaymentID:     r.PaymentID,
		TotalAmount:   r.TotalAmount,
		Currency:      r.Currency,
		PaymentMethod: r.PaymentMethod,
	}
	if intent.TotalAmount.IsZero() {
		intent.TotalAmount = fallbackAmount
	}
	if intent.Currency == "" {
		intent.Currency = fallbackCurrency
	}
	if !intent.PaymentMethod.Valid() {
		intent.PaymentMethod = method
	}
	return intent
}

// PaymentResult is the canonical outcome of completePayment
type PaymentResult struct {
	Success        bool   `json:"success"`
	TransactionRef string `json:"transactionRef,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Verification is the outcome of one transfer verification check
type Verification struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status,omitempty"`
}
