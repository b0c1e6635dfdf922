package core

import (
	"errors"
	"fmt"
)

// Error categories. Concrete errors below match them through errors.Is.
var (
	// ErrValidation is returned for bad user input; the operation is aborted without writes.
	ErrValidation = errors.New("validation failed")

	// ErrNotRevertible is returned when a history entry cannot be reverted.
	ErrNotRevertible = errors.New("history entry is not revertible")

	// ErrRecordNotFound is returned when a referenced record no longer exists.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStore is returned for backend failures during reads or writes.
	ErrStore = errors.New("record store failure")

	// ErrMail is returned when a reminder could not be delivered.
	ErrMail = errors.New("mail delivery failed")
)

// ValidationError represents a rejected field of user input.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// FormatError is returned when an invoice number does not match n/MM/YYYY.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid invoice number %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a failure of the record store with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// WrapStoreError wraps err as a StoreError unless it is nil or already
// categorized as not-found or validation.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// MailError wraps a failed reminder delivery.
type MailError struct {
	To  string
	Err error
}

func (e *MailError) Error() string {
	return fmt.Sprintf("mail to %s failed: %v", e.To, e.Err)
}

func (e *MailError) Unwrap() error {
	return e.Err
}

func (e *MailError) Is(target error) bool {
	return target == ErrMail
}

// NotFound builds an ErrRecordNotFound error naming the missing record.
func NotFound(kind RecordType, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrRecordNotFound)
}
