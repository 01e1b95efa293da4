// Package errors provides standardized error handling for the execution
// engine. Every failure surfaced by the engine carries a semantic error
// code so callers can distinguish plan construction problems from data
// problems without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents semantic error codes for consistent error handling
type ErrorCode string

const (
	// Plan construction and traversal errors
	ErrorCodePlan ErrorCode = "PLAN_ERROR"

	// Declared vs. computed schema disagreements, join key mismatches
	ErrorCodeSchema ErrorCode = "SCHEMA_ERROR"

	// Ragged partitions, empty input where values are required
	ErrorCodeData ErrorCode = "DATA_ERROR"

	// Missing files, parse failures, partition index out of range
	ErrorCodeSource ErrorCode = "SOURCE_ERROR"

	// Allocation and I/O failures
	ErrorCodeResource ErrorCode = "RESOURCE_ERROR"
)

// EngineError is the unified error type returned by the engine. It wraps
// an optional cause and is compatible with errors.Is / errors.As.
type EngineError struct {
	Code    ErrorCode
	Message string
	NodeID  int // plan node the error was raised for; -1 when not node-scoped
	Cause   error
}

// Error implements the Go error interface.
func (e *EngineError) Error() string {
	if e.NodeID >= 0 {
		return fmt.Sprintf("%s: node %d: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches two engine errors by code, so callers can write
// errors.Is(err, &EngineError{Code: ErrorCodeSchema}).
func (e *EngineError) Is(target error) bool {
	var t *EngineError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithNode returns a copy of the error scoped to the given plan node.
func (e *EngineError) WithNode(nodeID int) *EngineError {
	clone := *e
	clone.NodeID = nodeID
	return &clone
}

func newError(code ErrorCode, format string, args ...interface{}) *EngineError {
	return &EngineError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		NodeID:  -1,
	}
}

// NewPlanError creates an error for invalid plans: unknown node kinds,
// cycles, missing child bindings.
func NewPlanError(format string, args ...interface{}) *EngineError {
	return newError(ErrorCodePlan, format, args...)
}

// NewSchemaError creates an error for schema disagreements.
func NewSchemaError(format string, args ...interface{}) *EngineError {
	return newError(ErrorCodeSchema, format, args...)
}

// NewDataError creates an error for malformed partition data.
func NewDataError(format string, args ...interface{}) *EngineError {
	return newError(ErrorCodeData, format, args...)
}

// NewSourceError creates an error for source materialization failures.
func NewSourceError(format string, args ...interface{}) *EngineError {
	return newError(ErrorCodeSource, format, args...)
}

// NewResourceError creates an error for allocation or I/O failures.
func NewResourceError(format string, args ...interface{}) *EngineError {
	return newError(ErrorCodeResource, format, args...)
}

// Wrap attaches a cause to an engine error, preserving its code.
func Wrap(err *EngineError, cause error) *EngineError {
	clone := *err
	clone.Cause = cause
	return &clone
}

// CodeOf extracts the engine error code from err, or empty string when err
// is not an engine error.
func CodeOf(err error) ErrorCode {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
