package models

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationInFlight is returned when an operation is requested while the
	// same mutual-exclusion domain already has a call in flight.
	ErrOperationInFlight = errors.New("operation already in flight")

	// ErrSuperseded is returned when a result arrived after the session moved on
	// (reset, new analysis or language change) and was discarded.
	ErrSuperseded = errors.New("result discarded: session changed while the request was in flight")

	// ErrIncompatibleSchema marks a persisted snapshot that cannot be hydrated.
	ErrIncompatibleSchema = errors.New("incompatible session snapshot")
)

// ValidationError reports bad user input detected before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ProviderError wraps a failed remote analysis or backtest call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Message returns the provider's own message, as surfaced to the user.
func (e *ProviderError) Message() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Err.Error()
}

// NoStrategyError is returned when a backtest is requested but the active
// language has no strategy-bearing section.
type NoStrategyError struct {
	Language Language
}

func (e *NoStrategyError) Error() string {
	return fmt.Sprintf("no trading strategy available for language %q", e.Language)
}

// IncompatibleSchemaError describes why a persisted snapshot was rejected.
type IncompatibleSchemaError struct {
	Reason string
	Err    error
}

func (e *IncompatibleSchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrIncompatibleSchema, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrIncompatibleSchema, e.Reason)
}

func (e *IncompatibleSchemaError) Unwrap() error {
	return e.Err
}

func (e *IncompatibleSchemaError) Is(target error) bool {
	return target == ErrIncompatibleSchema
}
