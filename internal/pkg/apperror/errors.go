// internal/pkg/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the caller is expected to react to it
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNetwork             Kind = "network"
	KindResponseShape       Kind = "response_shape"
	KindBusiness            Kind = "business"
	KindVerificationPending Kind = "verification_pending"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindInternal            Kind = "internal"
)

// Error is the application error type shared by the domain packages
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is checks. They match any Error of the same kind.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrResponseShape       = &Error{Kind: KindResponseShape}
	ErrBusiness            = &Error{Kind: KindBusiness}
	ErrVerificationPending = &Error{Kind: KindVerificationPending}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrNotFound            = &Error{Kind: KindNotFound}
)

// ShapeMessage is shown to users when the upstream payload cannot be interpreted
const ShapeMessage = "Received an unexpected response from the payment service"

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind. A target carrying a message must match it as well.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Network(message string, err error) *Error {
	return Wrap(KindNetwork, message, err)
}

func Business(message string) *Error {
	return New(KindBusiness, message)
}

// Shape reports a payload that lacks the named field
func Shape(field string) *Error {
	return Wrap(KindResponseShape, ShapeMessage, fmt.Errorf("missing field %q", field))
}

func Pending(message string) *Error {
	return New(KindVerificationPending, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// KindOf returns the Kind of err, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// UserMessage returns the text safe to show to an end user
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Something went wrong, please try again"
}

// HTTPStatus maps an error to the status code the BFF responds with
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBusiness:
		return http.StatusUnprocessableEntity
	case KindVerificationPending:
		return http.StatusAccepted
	case KindNetwork, KindResponseShape:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
