// internal/domain/payment/verifier.go
package payment

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// StatusSource performs the raw verification call
type StatusSource interface {
	VerifyPaymentStatus(ctx context.Context, paymentID string) Outcome
}

// Verifier checks whether transfer funds have arrived for a payment.
// It never retries; every check is triggered by the shopper.
type Verifier struct {
	source StatusSource
	logger logrus.FieldLogger
}

func NewVerifier(source StatusSource, logger logrus.FieldLogger) *Verifier {
	return &Verifier{
		source: source,
		logger: logger.WithField("component", "payment_verifier"),
	}
}

// Verify reports verified when data.verified is true or data.status is "completed".
// A transport failure yields Verified=false together with a network error.
func (v *Verifier) Verify(ctx context.Context, paymentID string) (Verification, error) {
	log := v.logger.WithField("payment_id", paymentID)
	out := v.source.VerifyPaymentStatus(ctx, paymentID)

	if out.Err != nil {
		log.WithError(out.Err).Warn("Payment verification call failed")
		return Verification{}, apperror.Network("Could not check your transfer right now, please try again", out.Err)
	}

	fields, isObject := decodeObject(out.Body)
	if out.StatusCode >= 400 {
		if isObject {
			if msg, ok := failureMessage(fields); ok {
				return Verification{}, apperror.Business(msg)
			}
		}
		log.WithField("status_code", out.StatusCode).Warn("Payment verification rejected")
		return Verification{}, apperror.Network("Could not check your transfer right now, please try again", nil)
	}
	if !isObject {
		return Verification{}, apperror.Shape("data")
	}

	if success, ok := boolField(fields, "success"); ok && !success {
		msg, _ := failureMessage(fields)
		return Verification{}, apperror.Business(msg)
	}

	payload := fields
	if data, ok := fields["data"]; ok {
		if inner, innerIsObject := decodeObject(data); innerIsObject {
			payload = inner
		}
	}

	verified, _ := boolField(payload, "verified")
	status := strings.ToLower(stringField(payload, "status"))
	result := Verification{
		Verified: verified || status == "completed",
		Status:   status,
	}

	log.WithField("verified", result.Verified).Info("Payment verification checked")
	return result, nil
}
