// Package service implements the reservation, payment and event lifecycle
// use cases on top of the repositories.  Services own transaction
// orchestration; handlers only translate errors into HTTP.
package service

import "errors"

// ErrPastEvent is returned when the operation targets an event whose
// scheduled time has already passed.  Cancelling past reservations is
// disallowed to protect historical accounting.
var ErrPastEvent = errors.New("event has already taken place")

// ErrInvalidPrice rejects a negative event price.
var ErrInvalidPrice = errors.New("price must not be negative")

// ValidationError reports a malformed or out-of-range input with the field
// it concerns, so handlers can return a structured field-level message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
