package domain

import (
	"fmt"
	"strings"
)

// Error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeConfigError       = "CONFIG_ERROR"
	ErrCodeProtocolMismatch  = "PROTOCOL_MISMATCH"
	ErrCodeEngineError       = "ENGINE_ERROR"
	ErrCodeOutputError       = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// DomainError is an error with a machine-readable code and an optional cause
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeConfigError, message, cause)
}

// NewProtocolMismatchError creates an error for an engine result that does not match the request
func NewProtocolMismatchError(message string, cause error) error {
	return NewDomainError(ErrCodeProtocolMismatch, message, cause)
}

// NewEngineError creates a coverage engine error
func NewEngineError(message string, cause error) error {
	return NewDomainError(ErrCodeEngineError, message, cause)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported format: %s", format), nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, nil)
}

// RuleError describes a single problem found in a declared rule.
// RuleIndex is -1 for problems with the rule list as a whole.
type RuleError struct {
	RuleIndex    int
	Field        string
	Message      string
	ValidOptions []string
}

// Error implements the error interface
func (e RuleError) Error() string {
	if e.RuleIndex < 0 {
		return e.Message
	}
	return fmt.Sprintf("rule #%d: %s", e.RuleIndex+1, e.Message)
}

// RuleErrors collects every problem found while validating a rule list
type RuleErrors struct {
	Errors []RuleError
}

// Error implements the error interface
func (e *RuleErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d rule problems found:", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Add appends a problem to the list
func (e *RuleErrors) Add(err RuleError) {
	e.Errors = append(e.Errors, err)
}

// HasErrors reports whether any problem was recorded
func (e *RuleErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// ProtocolMismatchError reports an engine result that cannot be correlated
// with the bounds that were sent
type ProtocolMismatchError struct {
	RuleID  RuleID
	BoundID BoundID
	Reason  string
}

// Error implements the error interface
func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("%s (rule index %d, bound index %d)", e.Reason, e.RuleID, e.BoundID)
}
