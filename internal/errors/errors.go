package errors

import "fmt"

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrFull
	ErrNotAuthorized
	ErrInvalidState
	ErrInvalidInput
)

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Full(msg string) *Error {
	return &Error{Kind: ErrFull, Message: msg}
}

func Fullf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrFull, Message: fmt.Sprintf(format, args...)}
}

func NotAuthorized(msg string) *Error {
	return &Error{Kind: ErrNotAuthorized, Message: msg}
}

func InvalidState(msg string) *Error {
	return &Error{Kind: ErrInvalidState, Message: msg}
}

func InvalidStatef(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of err if it is an *Error, ErrInternal otherwise
func KindOf(err error) Kind {
	if appErr, ok := err.(*Error); ok {
		return appErr.Kind
	}
	return ErrInternal
}
