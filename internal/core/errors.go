package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidType       = errors.New("type must be income or expense")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyName         = errors.New("empty category name")
	ErrInvalidColor      = errors.New("color must be a hex value like #ef4444")
	ErrNoteTooLong       = errors.New("note too long (max 500 characters)")
	ErrInvalidMonth      = errors.New("month must be between 1 and 12")
	ErrTypeMismatch      = errors.New("transaction type does not match category type")
	ErrDuplicateCategory = errors.New("category name already exists")

	// ErrStorageUninitialized is returned by every store operation invoked
	// before Init has completed.
	ErrStorageUninitialized = errors.New("storage not initialized")
)

// ValidationError reports input rejected before it reaches storage.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Err.Error()
	}
	return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// StorageError wraps a failure of the underlying persistence engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StorageFailure wraps err as a StorageError for op. Errors that already
// carry a domain meaning pass through unchanged.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUninitialized) || errors.Is(err, ErrDuplicateCategory) {
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrDuplicateCategory)
}
