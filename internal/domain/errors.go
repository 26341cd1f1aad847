package domain

import "errors"

var (
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrNotFound               = errors.New("not found")
	ErrExpired                = errors.New("verification code expired")
	ErrMismatch               = errors.New("verification code mismatch")
	ErrAlreadyVerified        = errors.New("verification code already used")
	ErrGatewayFailure         = errors.New("gateway failure")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrSlotTaken              = errors.New("time slot is already booked")
	ErrDateBlocked            = errors.New("provider is unavailable on this date")
	ErrAlreadyReviewed        = errors.New("booking already reviewed")
	ErrTooManyAttempts        = errors.New("too many verification attempts")
)

// Invalid wraps ErrInvalidInput with a field-level reason.
func Invalid(reason string) error {
	return &inputError{reason: reason}
}

type inputError struct {
	reason string
}

func (e *inputError) Error() string { return "invalid input: " + e.reason }

func (e *inputError) Unwrap() error { return ErrInvalidInput }

// Reason returns the user-facing part of an input error, if any.
func Reason(err error) (string, bool) {
	var ie *inputError
	if errors.As(err, &ie) {
		return ie.reason, true
	}
	return "", false
}
