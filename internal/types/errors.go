package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("no results")
	ErrAuthentication = errors.New("authentication failed")
	ErrParse          = errors.New("model output is not valid JSON")
)

// ConfigurationError reports a credential that is required for every request but missing.
type ConfigurationError struct {
	Subsystem string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s credentials are not configured", e.Subsystem)
}

// TransportError wraps a failed provider call. Status is 0 when no response was received.
type TransportError struct {
	Provider  string
	Operation string
	Status    int
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Provider, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the call may succeed when repeated.
func (e *TransportError) Retryable() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}
