package custody

import (
	"errors"
	"fmt"
)

// ErrorType classifies calendar computation errors.
type ErrorType string

const (
	// ErrInvalidPatternDefinition means the pattern type is unknown or its sequence is unusable.
	ErrInvalidPatternDefinition ErrorType = "invalid_pattern_definition"
	// ErrDateBeforePatternStart means an assignment was requested before the pattern applies.
	ErrDateBeforePatternStart ErrorType = "date_before_pattern_start"
	// ErrConflictingAcceptedExceptions means several accepted exceptions cover one day.
	ErrConflictingAcceptedExceptions ErrorType = "conflicting_accepted_exceptions"
	// ErrInvalidRange means the requested range ends before it starts.
	ErrInvalidRange ErrorType = "invalid_range"
)

// Error represents a custody calculation error
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

// Is matches any *Error with the same Type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

// IsErrorType reports whether err wraps a custody error of type t.
func IsErrorType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

func newError(t ErrorType, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}
