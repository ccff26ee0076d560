// Package storage defines the persistence collaborator for custody patterns
// and exceptions. Please return the error types provided.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/melnik909-create/wechselmodell/custody"
)

// ErrorType classifies storage errors
type ErrorType string

const (
	ErrNotFound         ErrorType = "not_found"
	ErrAlreadyExists    ErrorType = "already_exists"
	ErrInvalidInput     ErrorType = "invalid_input"
	ErrConflict         ErrorType = "conflict"
	ErrPermissionDenied ErrorType = "permission_denied"
	// ErrStorageUnavailable is returned when the storage backend fails
	ErrStorageUnavailable ErrorType = "storage_unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsErrorType reports whether err wraps a storage error of type t.
func IsErrorType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// ExceptionFilter narrows ListExceptions. Nil fields do not filter.
type ExceptionFilter struct {
	// From and To bound the exception date, inclusive.
	From     *time.Time
	To       *time.Time
	Statuses []custody.Status
}

// Matches reports whether ex passes the filter.
func (f *ExceptionFilter) Matches(ex *custody.CustodyException) bool {
	if f == nil {
		return true
	}
	if f.From != nil && ex.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && ex.Date.After(*f.To) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if ex.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// Storage is the interface that must be implemented by storage backends
type Storage interface {
	// Pattern operations

	// CreatePattern stores p as the family's only active pattern. Any previously
	// active pattern of the family is deactivated in the same operation.
	CreatePattern(ctx context.Context, p *custody.CustodyPattern) error
	GetActivePattern(ctx context.Context, familyID uuid.UUID) (*custody.CustodyPattern, error)
	// ListPatterns returns all patterns of the family, newest first.
	ListPatterns(ctx context.Context, familyID uuid.UUID) ([]*custody.CustodyPattern, error)
	// ListActiveFamilies returns the IDs of families that have an active pattern.
	ListActiveFamilies(ctx context.Context) ([]uuid.UUID, error)

	// Exception operations

	CreateException(ctx context.Context, ex *custody.CustodyException) error
	GetException(ctx context.Context, familyID, exceptionID uuid.UUID) (*custody.CustodyException, error)
	// ListExceptions returns the family's exceptions ordered by date, then creation time.
	ListExceptions(ctx context.Context, familyID uuid.UUID, filter *ExceptionFilter) ([]*custody.CustodyException, error)
	// RespondToException moves a proposed exception to accepted or rejected.
	// It returns ErrConflict if the exception was already responded to, or if
	// accepting it would leave two accepted exceptions on the same date.
	RespondToException(ctx context.Context, familyID, exceptionID uuid.UUID, status custody.Status, respondedAt time.Time) (*custody.CustodyException, error)
	DeleteException(ctx context.Context, familyID, exceptionID uuid.UUID) error
}
