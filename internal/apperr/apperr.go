// Package apperr provides structured error types for the gatekeeper engine.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Callers classify with
// errors.Is; every concrete error below wraps exactly one sentinel.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// InvalidPermission reports a grant request carrying an unknown permission level.
func InvalidPermission(value string) error {
	return fmt.Errorf("%w: unknown permission level %q", ErrInvalidInput, value)
}

// EmptySubject reports a grant request with a blank subject ID. Grants for an
// unidentified subject are never recorded.
func EmptySubject() error {
	return fmt.Errorf("%w: subject ID must not be blank", ErrInvalidInput)
}

// InvalidAmount reports a purchase-order amount that is not a finite
// non-negative number.
func InvalidAmount(amount float64) error {
	return fmt.Errorf("%w: amount %v must be a finite non-negative number", ErrInvalidInput, amount)
}

// InvalidDepartment reports a subject or resource carrying a department
// outside the configured set.
func InvalidDepartment(value string) error {
	return fmt.Errorf("%w: unknown department %q", ErrInvalidInput, value)
}

// InvalidSensitivity reports a resource carrying an unknown sensitivity level.
func InvalidSensitivity(value string) error {
	return fmt.Errorf("%w: unknown sensitivity level %q", ErrInvalidInput, value)
}

// BlankField reports a required field left blank.
func BlankField(name string) error {
	return fmt.Errorf("%w: %s must not be blank", ErrInvalidInput, name)
}

// NotFound reports a missing entity by kind and ID.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// InvalidTransition reports an illegal workflow transition. Retrying does not
// change legality, so callers must not retry.
func InvalidTransition(orderID, from, to string) error {
	return fmt.Errorf("%w: order %s is %s, cannot transition to %s", ErrInvalidTransition, orderID, from, to)
}
