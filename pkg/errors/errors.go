// Package errors gives kitchenboard's failures a machine-readable [Code].
//
// The board, the CLI and the HTTP API all branch on the code rather than on
// message text: the board decides whether to roll back, the CLI picks an
// exit status and the server picks an HTTP status (see httputil). Validation
// failures also name the offending input fields so a form can mark them.
//
//	if err := errors.ValidateID("category_id", in.CategoryID); err != nil {
//	    return err // VALIDATION_FAILED, Fields: [category_id]
//	}
//	return errors.Wrap(errors.ErrCodeNetwork, err, "move node %s", id)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a stable identifier for a class of failure.
type Code string

const (
	// Rejected locally, never sent to the store.
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeValidation   Code = "VALIDATION_FAILED"

	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeNodeNotFound     Code = "NODE_NOT_FOUND"
	ErrCodeEdgeNotFound     Code = "EDGE_NOT_FOUND"
	ErrCodeCategoryNotFound Code = "CATEGORY_NOT_FOUND"

	// The Graph Store could not be reached or did not answer in time.
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	ErrCodeUnauthorized   Code = "UNAUTHORIZED"
	ErrCodeForbidden      Code = "FORBIDDEN"
	ErrCodeSessionExpired Code = "SESSION_EXPIRED"

	// A write for the same entity is still awaiting its result.
	ErrCodeInFlight Code = "IN_FLIGHT"
	// A destructive operation was requested without confirming it.
	ErrCodeConfirmationRequired Code = "CONFIRMATION_REQUIRED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error carries a Code, a message meant for people and an optional cause.
type Error struct {
	Code    Code
	Message string
	// Fields lists the offending inputs of a VALIDATION_FAILED error.
	Fields []string
	Cause  error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error with code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause, which stays reachable through errors.Is/As.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Validation reports missing or malformed fields, in the order given.
func Validation(fields ...string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: "invalid or missing fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

// invalid reports a single bad field with a specific reason.
func invalid(field, format string, args ...any) *Error {
	e := New(ErrCodeValidation, format, args...)
	e.Fields = []string{field}
	return e
}

// find returns the outermost *Error in err's chain.
func find(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// GetCode returns the code of err, or "" for errors from outside this package.
func GetCode(err error) Code {
	if e, ok := find(err); ok {
		return e.Code
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	e, ok := find(err)
	return ok && e.Code == code
}

// IsNotFound is true for every not-found code.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeNodeNotFound, ErrCodeEdgeNotFound, ErrCodeCategoryNotFound:
		return true
	}
	return false
}

// FieldsOf returns the offending fields of a validation error.
func FieldsOf(err error) []string {
	if e, ok := find(err); ok {
		return e.Fields
	}
	return nil
}

// UserMessage is the text to show a person: the message without its code,
// or err.Error() for foreign errors.
func UserMessage(err error) string {
	if e, ok := find(err); ok {
		return e.Message
	}
	return err.Error()
}
