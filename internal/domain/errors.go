package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")

	// ErrConflict is returned when a write is rejected because the entity is
	// no longer in the state the operation requires.
	ErrConflict = errors.New("conflict")

	// ErrGateway wraps failures of the payment gateway or identity provider.
	// No local state is changed when it is returned.
	ErrGateway = errors.New("gateway error")

	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrPaymentNotCaptured = errors.New("payment not captured")

	// ErrTransitionDenied is returned by stores when a conditional update
	// matched no row because the current status does not allow it.
	ErrTransitionDenied = errors.New("status transition denied")
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid returns a ValidationError for field.
func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
