// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors - malformed input, rejected before any state change.
	ErrValidation    = errors.New("validation error")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")
	ErrInvalidFormat = errors.New("invalid format")

	// Precondition errors - an operation was called in a state or with an
	// argument that makes it meaningless (e.g. non-positive goal target).
	ErrPrecondition = errors.New("precondition failed")

	// Persistence errors - the storage collaborator failed. The in-memory
	// aggregate is NOT rolled back; callers should retry the write.
	ErrPersistence = errors.New("persistence error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "achievement", "snapshot"
	Op      string // Operation that failed, e.g., "Import", "Save"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrInvalidChapterID = NewDomainError("progress", "Validate", ErrInvalidInput, "invalid chapter ID")
	ErrInvalidDayKey    = NewDomainError("progress", "Validate", ErrInvalidFormat, "invalid day key")
	ErrGoalTargetRange  = NewDomainError("progress", "SetWeeklyGoal", ErrPrecondition, "goal target must be a positive integer")
	ErrNoWeeklyGoal     = NewDomainError("progress", "WeeklyGoalStats", ErrNotFound, "no weekly goal set")
)

// Snapshot (import/export) domain errors
var (
	ErrSnapshotMalformed = NewDomainError("snapshot", "Import", ErrValidation, "snapshot blob is structurally invalid")
	ErrSnapshotFormat    = NewDomainError("snapshot", "Import", ErrValidation, "unknown snapshot format")
	ErrSnapshotChecksum  = NewDomainError("snapshot", "Import", ErrValidation, "snapshot checksum mismatch")
	ErrSnapshotVersion   = NewDomainError("snapshot", "Import", ErrValidation, "unsupported snapshot version")
)

// Storage errors
var (
	ErrStorageRead  = NewDomainError("storage", "Load", ErrPersistence, "failed to read persisted snapshot")
	ErrStorageWrite = NewDomainError("storage", "Save", ErrPersistence, "failed to write snapshot")
)

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsPrecondition checks if the error is a precondition error.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsPersistence checks if the error is a persistence error.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
