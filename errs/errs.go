// Package errs defines the structured error carried across the remote
// boundary (backup hosts, OAuth).
package errs

import (
	"errors"
	"fmt"
)

// Code is a stable error code callers can branch on.
type Code string

const (
	CodeInternal     Code = "internal"
	CodeInvalid      Code = "invalid"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeUnavailable  Code = "unavailable"
	CodeNotConnected Code = "not_connected"
)

// AppError pairs a code with a human message and the underlying cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Meta    map[string]any
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError by code so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return t.Message == e.Message && t.Code == e.Code
}

// WithMeta attaches a key/value pair, e.g. the HTTP status of a failed call.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps err with code and message. A nil err yields a plain New.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode reports whether any AppError in err's chain has code.
func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternal.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
