// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountDeleted   = errors.New("account is deleted")
	ErrTradeNotFound    = errors.New("trade not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrStoreClosed      = errors.New("store is closed")
	ErrInvalidTier      = errors.New("invalid subscription tier")
)

// StoreError represents an error from the remote document store.
type StoreError struct {
	Collection string
	Op         string
	ID         string
	Err        error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store error [%s] %s %s: %v", e.Collection, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store error [%s] %s: %v", e.Collection, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(collection, op, id string, err error) *StoreError {
	return &StoreError{
		Collection: collection,
		Op:         op,
		ID:         id,
		Err:        err,
	}
}

// ReplicationError represents a failed fan-out write to a follower account.
// These are captured and logged; they never fail the primary operation.
type ReplicationError struct {
	SourceTradeID string
	AccountID     string
	Err           error
}

func (e *ReplicationError) Error() string {
	return fmt.Sprintf("replication error [trade %s -> account %s]: %v", e.SourceTradeID, e.AccountID, e.Err)
}

func (e *ReplicationError) Unwrap() error {
	return e.Err
}

// NewReplicationError creates a new ReplicationError.
func NewReplicationError(sourceTradeID, accountID string, err error) *ReplicationError {
	return &ReplicationError{
		SourceTradeID: sourceTradeID,
		AccountID:     accountID,
		Err:           err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
