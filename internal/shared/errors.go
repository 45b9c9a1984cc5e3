package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInsufficientCapacity is returned when an allocation exceeds the remaining sets.
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	// ErrConflict signals a concurrent write was detected; callers may resubmit.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError carries a field-level message.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientCapacityError reports how many sets were requested against how many remain.
type InsufficientCapacityError struct {
	OrderID      int64
	DesignNumber string
	Requested    int
	Available    int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient sets for %s: available %d, requested %d", e.DesignNumber, e.Available, e.Requested)
}

// Is matches ErrInsufficientCapacity.
func (e *InsufficientCapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}

// PersistenceError wraps a store failure with the operation that produced it.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err, or returns nil when err is nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(entity string, key any) error {
	return fmt.Errorf("%s %v: %w", entity, key, ErrNotFound)
}
