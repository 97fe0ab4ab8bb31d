package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to pick a response.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindRemote       Kind = "remote"
)

// Error carries a stable machine code alongside the wrapped cause.
type Error struct {
	kind    Kind
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	switch {
	case e.err != nil && e.message != "":
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.err)
	case e.err != nil:
		return fmt.Sprintf("%s: %v", e.code, e.err)
	case e.message != "":
		return fmt.Sprintf("%s: %s", e.code, e.message)
	default:
		return e.code
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the machine readable identifier, e.g. "username_taken".
func (e *Error) Code() string {
	return e.code
}

// Kind returns the failure classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Message returns the user facing text, if any.
func (e *Error) Message() string {
	return e.message
}

func Validation(code, message string) error {
	return &Error{kind: KindValidation, code: code, message: message}
}

func NotFound(code string) error {
	return &Error{kind: KindNotFound, code: code}
}

func Conflict(code, message string) error {
	return &Error{kind: KindConflict, code: code, message: message}
}

func Unauthorized(code string) error {
	return &Error{kind: KindUnauthorized, code: code}
}

// Remote wraps a store or collaborator failure. The operation and reason are
// joined into the code the same way across packages: "links.move.update_failed".
func Remote(operation, reason string, cause error) error {
	return &Error{kind: KindRemote, code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// KindOf reports the kind of the first *Error in the chain, or KindRemote.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return KindRemote
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.kind == kind
}

// CodeOf returns the code of the first *Error in the chain, or the fallback.
func CodeOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.code
	}
	return fallback
}
