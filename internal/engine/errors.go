package engine

import (
	"errors"
	"fmt"
)

// Error is a typed failure surfaced to callers. Every externally
// visible operation returns either nil or an *Error identifying the
// violated precondition; failures are never downgraded to partial
// success.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input: a bad schema
	// definition or a missing/mistyped required event field.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates an unknown user, identity, or schema
	// reference.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConfirmationRequired indicates a hard delete attempted
	// without the force flag.
	ErrCodeConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"

	// ErrCodeConflict indicates a storage constraint violation, e.g. a
	// duplicate idempotency key racing past the pre-check.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeStorage indicates an I/O or engine-level storage failure.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the error code from err, or "" if err carries none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND engine error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsValidation reports whether err is a VALIDATION engine error.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

// IsConfirmationRequired reports whether err is a hard-delete
// confirmation gate error.
func IsConfirmationRequired(err error) bool {
	return CodeOf(err) == ErrCodeConfirmationRequired
}

// IsConflict reports whether err is a CONFLICT engine error.
func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

func validationErr(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func storageErr(message string, err error) *Error {
	return &Error{Code: ErrCodeStorage, Message: message, Err: err}
}

func conflictErr(message string, err error) *Error {
	return &Error{Code: ErrCodeConflict, Message: message, Err: err}
}
