// Package domain contains the engine's core types and errors.
// Domain errors represent engine-level failures, NOT HTTP errors.
// They are infrastructure-agnostic and can be mapped to HTTP/gRPC/etc by adapters.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrFatal indicates an unrecoverable host-level failure.
	ErrFatal = errors.New("fatal")

	// ErrPersistence indicates a failure surfaced from the durability layer.
	ErrPersistence = errors.New("persistence failure")

	// ErrEngine indicates a failure already modeled by the engine.
	ErrEngine = errors.New("process engine failure")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates engine rule validation failed.
	ErrValidation = errors.New("validation failed")
)

// FatalError wraps an unrecoverable failure, such as a recovered panic.
type FatalError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *FatalError) Unwrap() error {
	return ErrFatal
}

// NewFatalError creates a fatal error from a recovered value.
func NewFatalError(value any, stack []byte) error {
	return &FatalError{Value: value, Stack: stack}
}

// PersistenceError is raised by the durability layer.
type PersistenceError struct {
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persistence %s failed: %v", e.Operation, e.Cause)
	}

	return fmt.Sprintf("persistence %s failed", e.Operation)
}

// Unwrap returns both the sentinel and the cause.
func (e *PersistenceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPersistence}
	}

	return []error{ErrPersistence, e.Cause}
}

// NewPersistenceError creates a persistence error with context.
func NewPersistenceError(operation string, cause error) error {
	return &PersistenceError{Operation: operation, Cause: cause}
}

// EngineError is the generic engine failure surfaced to the command layer.
type EngineError struct {
	Message string
	Command string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns both the sentinel and the cause.
func (e *EngineError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrEngine}
	}

	return []error{ErrEngine, e.Cause}
}

// NewEngineError creates an engine error with an optional cause.
func NewEngineError(message string, cause error) error {
	return &EngineError{Message: message, Cause: cause}
}

// NewCommandError creates an engine error that names the failing command.
func NewCommandError(command string, cause error) error {
	return &EngineError{
		Message: "exception while executing command " + command,
		Command: command,
		Cause:   cause,
	}
}

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsFatal checks if an error is a fatal error.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsPersistence checks if an error came from the persistence layer.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsEngine checks if an error is an engine error.
func IsEngine(err error) bool {
	return errors.Is(err, ErrEngine)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRecognized reports whether err is already modeled by the engine
// and can be surfaced to callers unchanged.
func IsRecognized(err error) bool {
	return IsEngine(err) || IsNotFound(err) || IsValidation(err)
}
