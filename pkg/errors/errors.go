// Package errors defines the sentinel errors shared by the scraper and the
// corpus pipeline, plus an AppError wrapper that keeps both the sentinel and
// the underlying cause reachable through errors.Is / errors.As.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrTransientFetch    = errors.New("transient fetch error")
	ErrMissingIdentifier = errors.New("missing identifier")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNotFound          = errors.New("not found")
	ErrInternal          = errors.New("internal error")
)

// AppError pairs a sentinel with a human-readable message and an optional
// underlying cause.
type AppError struct {
	Err     error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Err.Error(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches cause to a sentinel. A nil cause yields nil.
func Wrap(sentinel error, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &AppError{
		Err:     sentinel,
		Message: message,
		Cause:   cause,
	}
}

// Transient marks cause as a retryable fetch failure.
func Transient(cause error, message string) error {
	return Wrap(ErrTransientFetch, cause, message)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}

// ExitCode maps an error to a process exit status for the command-line
// entry points.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidConfig):
		return 2
	case errors.Is(err, ErrTransientFetch):
		return 3
	case errors.Is(err, ErrMissingIdentifier), errors.Is(err, ErrMalformedRecord):
		return 4
	case errors.Is(err, ErrNotFound):
		return 5
	default:
		return 1
	}
}
