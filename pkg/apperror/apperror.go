// Package apperror defines the error kinds surfaced by the record core.
// Callers are expected to match them with errors.As and translate them to
// whatever surface they serve (HTTP status codes, CLI exit codes).
package apperror

import (
	"fmt"
	"strings"
)

// FieldError describes one failed check on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every field that failed validation, not just the
// first one encountered.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a failed check. Safe to call on a zero value.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

// ErrOrNil returns e when at least one check failed, nil otherwise.
func (e *ValidationError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// NotFoundError indicates the entity being read or mutated, or an entity it
// references, does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError for the given entity and identifier.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError indicates a uniqueness violation on the named field.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q is already in use", e.Field, e.Value)
}

// NewConflict builds a ConflictError for the given field and value.
func NewConflict(field, value string) *ConflictError {
	return &ConflictError{Field: field, Value: value}
}

// StorageError wraps a persistence failure, including transaction rollback.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorage wraps err with the operation that failed. Returns nil when err
// is nil so call sites can wrap unconditionally.
func NewStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// UnsupportedInputError indicates a list-valued input that is neither a
// string nor a list of strings.
type UnsupportedInputError struct {
	Field string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("%s: expected a string or a list of strings", e.Field)
}
