package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ValidationError reports a missing or malformed upgrade request field.
// It is raised before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid upgrade request: field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid upgrade request: field '%s' is required", e.Field)
}

// NotFoundError reports that a named resource has no match in the control plane.
type NotFoundError struct {
	Resource string
	Name     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.Name)
}

// PreconditionError reports that a service cannot be upgraded in its current
// state and the control plane offers no upgrade action for it.
type PreconditionError struct {
	Service string
	State   string
}

func (e PreconditionError) Error() string {
	return fmt.Sprintf("service '%s' cannot be upgraded: state is '%s' and no upgrade action is offered", e.Service, e.State)
}

// UnexpectedStateError reports a service state outside the expected upgrade
// lifecycle during a wait phase. It is a hard stop, not retried.
type UnexpectedStateError struct {
	Service string
	State   string
}

func (e UnexpectedStateError) Error() string {
	return fmt.Sprintf("service '%s' entered unexpected state '%s' during upgrade", e.Service, e.State)
}

// TimeoutError reports that a wait phase exhausted its deadline while the
// service kept reporting a legitimate in-progress state.
type TimeoutError struct {
	Phase  string
	Budget time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for service to become %s after %s", e.Phase, e.Budget)
}

// TransportError reports that a call to the control plane API could not be
// completed. StatusCode is zero for network-level failures.
type TransportError struct {
	Op         string // "get", "post"
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("control plane %s %s failed (status %d): %s", e.Op, e.URL, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("control plane %s %s failed: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("control plane %s %s failed: %s", e.Op, e.URL, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a NotFoundError
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsTimeout returns true if the error is a TimeoutError
func IsTimeout(err error) bool {
	var to TimeoutError
	return errors.As(err, &to)
}

// IsUnexpectedState returns true if the error is an UnexpectedStateError
func IsUnexpectedState(err error) bool {
	var us UnexpectedStateError
	return errors.As(err, &us)
}

// IsValidation returns true if the error is a ValidationError
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsPrecondition returns true if the error is a PreconditionError
func IsPrecondition(err error) bool {
	var pe PreconditionError
	return errors.As(err, &pe)
}

// IsTransport returns true if the error is a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
