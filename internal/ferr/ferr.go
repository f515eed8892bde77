// Package ferr defines the engine-wide error taxonomy shared by the schema,
// filter, aggregate, adapter, saga and subscription packages.
package ferr

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ValidationError signals malformed request structure, an unknown operator,
// or any other caller-fixable input problem.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "validation: " + e.Message }

// Validation constructs a ValidationError with a formatted message.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DatabaseError wraps a backend error, preserving the native SQL state when
// the driver supplies one, plus the original cause for errors.Is/As/Cause.
type DatabaseError struct {
	Message  string
	SQLState string
	Cause    error
}

func (e *DatabaseError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("database: %s (sqlstate=%s)", e.Message, e.SQLState)
	}
	return "database: " + e.Message
}

func (e *DatabaseError) Unwrap() error { return e.Cause }

// Database constructs a DatabaseError from a message and SQL state, with
// no underlying cause; use DatabaseWrap to keep the original error.
func Database(message, sqlState string) error {
	return &DatabaseError{Message: message, SQLState: sqlState}
}

// DatabaseWrap builds a DatabaseError from cause, attaching msg as context
// the way errors.Wrap does, so the original driver error survives for
// errors.Is/As and errors.Cause while the message stays human-readable.
func DatabaseWrap(cause error, sqlState, msg string) error {
	return &DatabaseError{Message: errors.Wrap(cause, msg).Error(), SQLState: sqlState, Cause: cause}
}

// ConnectionPoolError indicates pool acquisition failed (timeout or
// exhaustion).
type ConnectionPoolError struct {
	Message string
	Cause   error
}

func (e *ConnectionPoolError) Error() string { return "connection pool: " + e.Message }

func (e *ConnectionPoolError) Unwrap() error { return e.Cause }

// ConnectionPool constructs a ConnectionPoolError.
func ConnectionPool(format string, args ...interface{}) error {
	return &ConnectionPoolError{Message: fmt.Sprintf(format, args...)}
}

// ConnectionPoolWrap builds a ConnectionPoolError from cause, attaching msg
// as context via errors.Wrap while preserving the original error for
// errors.Is/As and errors.Cause.
func ConnectionPoolWrap(cause error, msg string) error {
	return &ConnectionPoolError{Message: errors.Wrap(cause, msg).Error(), Cause: cause}
}

// SagaNotFoundError means the referenced saga identity does not exist.
type SagaNotFoundError struct {
	ID uuid.UUID
}

func (e *SagaNotFoundError) Error() string { return fmt.Sprintf("saga %s not found", e.ID) }

// SagaNotFound constructs a SagaNotFoundError.
func SagaNotFound(id uuid.UUID) error { return &SagaNotFoundError{ID: id} }

// StepNotFoundError means the referenced saga step identity does not exist.
type StepNotFoundError struct {
	ID uuid.UUID
}

func (e *StepNotFoundError) Error() string { return fmt.Sprintf("step %s not found", e.ID) }

// StepNotFound constructs a StepNotFoundError.
func StepNotFound(id uuid.UUID) error { return &StepNotFoundError{ID: id} }

// InvalidStateTransitionError means a saga or step attempted a transition
// its state machine does not permit.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// InvalidStateTransition constructs an InvalidStateTransitionError.
func InvalidStateTransition(from, to string) error {
	return &InvalidStateTransitionError{From: from, To: to}
}

// ParseError signals an intermediate parse failure, such as an unknown
// temporal bucket name or malformed identifier.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return "parse: " + e.Message }

// Parse constructs a ParseError.
func Parse(format string, args ...interface{}) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// InvalidConditionError signals an observer DSL parse failure. The observer
// DSL itself lives outside this engine's scope; the error kind is retained
// here so adapters that embed observer conditions can report failures using
// the same taxonomy.
type InvalidConditionError struct {
	Message string
}

func (e *InvalidConditionError) Error() string { return "invalid condition: " + e.Message }

// InvalidCondition constructs an InvalidConditionError.
func InvalidCondition(format string, args ...interface{}) error {
	return &InvalidConditionError{Message: fmt.Sprintf(format, args...)}
}
