// internal/domain/payment/normalizer.go
package payment

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

const defaultFailureMessage = "operation failed"

// Outcome is the raw result of one call to the Order/Payment service
type Outcome struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Normalize reconciles the wrapped, direct and error envelopes into the payload
// that carries signal. The precedence is fixed:
//
//  1. transport failure, HTTP error status or outer success=false stops with that error
//  2. success=true with data unwraps data
//  3. a payload carrying signal is the result itself
//  4. anything carrying error or message is a business failure
//  5. a payload still lacking signal is a shape error naming it
func Normalize(out Outcome, signal string) (json.RawMessage, error) {
	if out.Err != nil {
		return nil, apperror.Network("Unable to reach the payment service, please try again", out.Err)
	}

	fields, isObject := decodeObject(out.Body)

	if out.StatusCode >= 400 {
		if isObject {
			if msg, ok := failureMessage(fields); ok {
				return nil, apperror.Business(msg)
			}
		}
		return nil, apperror.Network(
			"The payment service is unavailable, please try again",
			fmt.Errorf("payment service responded with status %d", out.StatusCode),
		)
	}

	if !isObject {
		return nil, apperror.Shape(signal)
	}

	success, hasSuccess := boolField(fields, "success")
	if hasSuccess && !success {
		msg, _ := failureMessage(fields)
		return nil, apperror.Business(msg)
	}

	if success {
		if data, ok := fields["data"]; ok && !isNull(data) {
			inner, innerIsObject := decodeObject(data)
			if !innerIsObject || !hasSignal(inner, signal) {
				return nil, apperror.Shape(signal)
			}
			return data, nil
		}
	}

	if hasSignal(fields, signal) {
		return json.RawMessage(out.Body), nil
	}

	if msg, ok := failureMessage(fields); ok {
		return nil, apperror.Business(msg)
	}

	return nil, apperror.Shape(signal)
}

// DecodeOrderResult normalizes a createOrder/enrollNow outcome
func DecodeOrderResult(out Outcome) (*OrderResult, error) {
	payload, err := Normalize(out, SignalPaymentID)
	if err != nil {
		return nil, err
	}

	var result OrderResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperror.Wrap(apperror.KindResponseShape, apperror.ShapeMessage, err)
	}
	fields, _ := decodeObject(payload)
	result.PaymentID = stringField(fields, SignalPaymentID)
	result.OrderID = firstNonEmpty(stringField(fields, "orderId"), stringField(fields, "id"))

	return &result, nil
}

// DecodePaymentResult normalizes a completePayment outcome
func DecodePaymentResult(out Outcome) (*PaymentResult, error) {
	payload, err := Normalize(out, SignalTransactionRef)
	if err != nil {
		return nil, err
	}

	fields, _ := decodeObject(payload)
	return &PaymentResult{
		Success:        true,
		TransactionRef: stringField(fields, SignalTransactionRef),
	}, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func boolField(fields map[string]json.RawMessage, name string) (value bool, present bool) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return false, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, false
	}
	return value, true
}

// stringField reads a string or numeric field as text
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func hasSignal(fields map[string]json.RawMessage, signal string) bool {
	return stringField(fields, signal) != ""
}

// failureMessage extracts error, then message. The error field may itself be
// an object with a message.
func failureMessage(fields map[string]json.RawMessage) (string, bool) {
	found := false
	for _, name := range []string{"error", "message"} {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			continue
		}
		found = true
		if s := stringField(fields, name); s != "" {
			return s, true
		}
		if nested, isObject := decodeObject(raw); isObject {
			if s := stringField(nested, "message"); s != "" {
				return s, true
			}
		}
	}
	return defaultFailureMessage, found
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
