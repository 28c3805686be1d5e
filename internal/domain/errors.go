package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy.
// Use errors.Is against these to classify a failure without caring about the concrete type.
var (
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrTransientDispatch = errors.New("transient dispatch error")
	ErrNotFound          = errors.New("not found")
)

// ValidationError reports a malformed financial record
type ValidationError struct {
	RecordID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("invalid record: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid record %s: %s %s", e.RecordID, e.Field, e.Reason)
}

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConfigurationError reports a bad bucket boundary set or automation rule
type ConfigurationError struct {
	Subject string // e.g. "boundaries" or "rule 42"
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Subject, e.Reason)
}

// Is reports whether target is ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// TransientDispatchError reports a reminder send that failed and may be retried
type TransientDispatchError struct {
	RecordID string
	Channel  Channel
	Err      error
}

func (e *TransientDispatchError) Error() string {
	return fmt.Sprintf("dispatch of %s reminder for record %s failed: %v", e.Channel, e.RecordID, e.Err)
}

// Is reports whether target is ErrTransientDispatch
func (e *TransientDispatchError) Is(target error) bool {
	return target == ErrTransientDispatch
}

func (e *TransientDispatchError) Unwrap() error {
	return e.Err
}
