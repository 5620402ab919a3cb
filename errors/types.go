package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies failures by origin, which decides how far they
// propagate (see RecoverableError.Fatal).
type ErrorType string

const (
	// Local computation failures degrade to "no current window"
	ErrorTypeLocal ErrorType = "local"

	// Remote store connectivity failures fail the whole aggregation tick
	ErrorTypeRemote ErrorType = "remote"

	// Malformed external data is treated as a lookup miss
	ErrorTypeDataFormat ErrorType = "data_format"

	// Invalid numeric thresholds fall back to defaults
	ErrorTypeConfig ErrorType = "config"

	ErrorTypeTimeout ErrorType = "timeout"
)

// ErrorSeverity grades how much functionality a failure costs
type ErrorSeverity int

const (
	SeverityLow      ErrorSeverity = iota // absorbed internally
	SeverityMedium                        // degraded output
	SeverityHigh                          // tick fails, loop continues
	SeverityCritical                      // loop must stop
)

// RecoverableError is the typed error surfaced by network and data
// failures. It never unwinds past the refresh loop.
type RecoverableError struct {
	Type       ErrorType
	Severity   ErrorSeverity
	Message    string
	Cause      error
	Timestamp  time.Time
	CanRetry   bool
	RetryAfter time.Duration
}

func (e *RecoverableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RecoverableError) Unwrap() error {
	return e.Cause
}

// NewRemoteError wraps a remote store failure
func NewRemoteError(message string, cause error) *RecoverableError {
	return &RecoverableError{
		Type:       ErrorTypeRemote,
		Severity:   SeverityHigh,
		Message:    message,
		Cause:      cause,
		Timestamp:  time.Now(),
		CanRetry:   true,
		RetryAfter: 5 * time.Second,
	}
}

// NewLocalError wraps a local computation failure
func NewLocalError(message string, cause error) *RecoverableError {
	return &RecoverableError{
		Type:      ErrorTypeLocal,
		Severity:  SeverityMedium,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewDataFormatError wraps malformed external data
func NewDataFormatError(message string, cause error) *RecoverableError {
	return &RecoverableError{
		Type:      ErrorTypeDataFormat,
		Severity:  SeverityLow,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewConfigError wraps an invalid configuration. Not retryable: the
// operator has to fix the config before the process can run.
func NewConfigError(message string, cause error) *RecoverableError {
	return &RecoverableError{
		Type:      ErrorTypeConfig,
		Severity:  SeverityCritical,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// IsRemote reports whether err is a remote connectivity failure
func IsRemote(err error) bool {
	var re *RecoverableError
	if errors.As(err, &re) {
		return re.Type == ErrorTypeRemote || re.Type == ErrorTypeTimeout
	}
	return false
}

// IsLocal reports whether err is a local computation failure
func IsLocal(err error) bool {
	var re *RecoverableError
	if errors.As(err, &re) {
		return re.Type == ErrorTypeLocal
	}
	return false
}
