package entity

import (
	"errors"
	"fmt"
)

// Error taxonomy for the order path. Handlers map these onto HTTP
// status codes; everything else falls through as a 500.

// ValidationError is a user-correctable input problem (bad cart, missing
// shipping fields).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError means a provider credential or setting is missing.
// Operator-correctable, never user-correctable.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// GatewayError wraps a payment gateway failure. StatusCode is the
// provider's HTTP status when one was received, 0 otherwise.
type GatewayError struct {
	StatusCode int
	Msg        string
}

func (e *GatewayError) Error() string { return e.Msg }

// FulfillmentProviderError wraps a fulfillment provider failure. Reason
// carries the provider's machine-readable error reason when present.
type FulfillmentProviderError struct {
	StatusCode int
	Reason     string
	Msg        string
}

func (e *FulfillmentProviderError) Error() string { return e.Msg }

// ConflictError covers order-number collisions and double-submission
// attempts.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// NotFoundError marks an unknown order, product or variant reference.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// ErrNotFound is the sentinel repositories return for missing rows.
var ErrNotFound = &NotFoundError{Msg: "not found"}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
