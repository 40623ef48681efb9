package service

import (
	"errors"
	"strings"
)

// Error kinds surfaced to the presentational layer.
var (
	ErrOutOfStock             = errors.New("out of stock")
	ErrConcurrentModification = errors.New("stock changed while reserving, please try again")
	ErrValidation             = errors.New("validation failed")
	ErrGeneral                = errors.New("something went wrong, please try again")
)

// ErrRequestInFlight is returned when a line already has a quantity change outstanding.
// It is not an error kind; the line is simply rendered as busy.
var ErrRequestInFlight = errors.New("request already in flight for this line")

// ErrorKind is the wire name of a sentinel.
type ErrorKind string

const (
	KindOutOfStock             ErrorKind = "OUT_OF_STOCK"
	KindConcurrentModification ErrorKind = "CONCURRENT_MODIFICATION"
	KindValidation             ErrorKind = "VALIDATION_ERROR"
	KindGeneral                ErrorKind = "GENERAL_ERROR"
)

// KindOf maps err to its kind. nil and ErrRequestInFlight map to "".
func KindOf(err error) ErrorKind {
	switch {
	case err == nil, errors.Is(err, ErrRequestInFlight):
		return ""
	case errors.Is(err, ErrOutOfStock):
		return KindOutOfStock
	case errors.Is(err, ErrConcurrentModification):
		return KindConcurrentModification
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindGeneral
	}
}

// OpError carries a kind, a user-facing message and the underlying cause.
type OpError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *OpError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *OpError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newOpError(kind error, message string, cause error) error {
	return &OpError{Kind: kind, Message: strings.TrimSpace(message), Cause: cause}
}

func validationError(message string) error {
	return newOpError(ErrValidation, message, nil)
}

// generalError keeps the gateway message when there is one.
func generalError(message string, cause error) error {
	return newOpError(ErrGeneral, message, cause)
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Error()
	}
	switch KindOf(err) {
	case KindOutOfStock:
		return ErrOutOfStock.Error()
	case KindConcurrentModification:
		return ErrConcurrentModification.Error()
	case KindValidation:
		return ErrValidation.Error()
	}
	if errors.Is(err, ErrRequestInFlight) {
		return ErrRequestInFlight.Error()
	}
	return ErrGeneral.Error()
}
