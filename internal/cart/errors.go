package cart

import (
	"errors"
	"fmt"
)

var (
	ErrBelowMinimumParticipants = errors.New("participant count is below the tour minimum")
	ErrItemNotFound             = errors.New("cart item not found")
	ErrMissingSession           = errors.New("cart session missing")
)

// ValidationError reports a bad input field.  It is safe to show to the
// customer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
