package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies a failure. Every type except dial is fatal at startup.
type ErrorType string

const (
	ErrorTypeIO            ErrorType = "io"
	ErrorTypeParse         ErrorType = "parse"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeDial          ErrorType = "dial"
	ErrorTypeConfiguration ErrorType = "configuration"
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new structured error
func New(errType ErrorType, operation, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with additional context.
// It returns nil when err is nil.
func Wrap(err error, errType ErrorType, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}

	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     err,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsType reports whether any StructuredError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var se *StructuredError
	for err != nil {
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Type == errType {
			return true
		}
		err = se.Cause
	}
	return false
}

// TypeOf returns the type of the outermost StructuredError in err's chain,
// or an empty string.
func TypeOf(err error) ErrorType {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ""
}

// NewParseError creates a parse error
func NewParseError(operation, message string) *StructuredError {
	return New(ErrorTypeParse, operation, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(operation, message string) *StructuredError {
	return New(ErrorTypeConfiguration, operation, message)
}

// NewDialError creates a dial error
func NewDialError(operation, message string) *StructuredError {
	return New(ErrorTypeDial, operation, message)
}

// WrapIOError wraps an error as an I/O error
func WrapIOError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeIO, operation, message)
}

// WrapParseError wraps an error as a parse error
func WrapParseError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeParse, operation, message)
}

// WrapNetworkError wraps an error as a network error
func WrapNetworkError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeNetwork, operation, message)
}

// WrapDialError wraps an error as a dial error
func WrapDialError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeDial, operation, message)
}

// WrapConfigurationError wraps an error as a configuration error
func WrapConfigurationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeConfiguration, operation, message)
}
