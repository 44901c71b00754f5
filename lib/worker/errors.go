// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType names a failure kind. The value travels in the "type"
// field of error responses, so it is wire-stable.
type ErrorType string

const (
	// TypeDecode indicates an input line that is not a JSON object, or
	// whose args is not an object. The session continues with the
	// next line.
	TypeDecode ErrorType = "DecodeError"

	// TypeUnknownCommand indicates a name outside the registry. The
	// message lists every valid name.
	TypeUnknownCommand ErrorType = "UnknownCommandError"

	// TypeParameter indicates a required argument that is missing or
	// has the wrong JSON type.
	TypeParameter ErrorType = "ParameterError"

	// TypeInternal covers errors that carry no kind of their own and
	// handler panics.
	TypeInternal ErrorType = "InternalError"
)

// Error is a failure raised by the protocol layer itself. Errors from
// collaborators are not wrapped in Error; they report their own kind
// through a Kind method (see [KindOf]).
type Error struct {
	// Type classifies the error for the response envelope.
	Type ErrorType

	// Err is the underlying error with the human-readable message.
	Err error
}

// Error returns the underlying message. The type travels separately
// in the envelope.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Kind returns the wire name of the error type.
func (e *Error) Kind() string { return string(e.Type) }

// Decode creates a decode error.
func Decode(format string, args ...any) *Error {
	return &Error{Type: TypeDecode, Err: fmt.Errorf(format, args...)}
}

// UnknownCommand creates the error for a name outside valid.
func UnknownCommand(name string, valid []string) *Error {
	return &Error{
		Type: TypeUnknownCommand,
		Err:  fmt.Errorf("unknown command %q (valid commands: %s)", name, strings.Join(valid, ", ")),
	}
}

// Parameter creates a parameter error.
func Parameter(format string, args ...any) *Error {
	return &Error{Type: TypeParameter, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *Error {
	return &Error{Type: TypeInternal, Err: fmt.Errorf(format, args...)}
}

// ErrShutdown is returned by the exit handler. The dispatcher turns it
// into [OutcomeShutdown] rather than an error response.
var ErrShutdown = errors.New("shutdown requested")

// kinded is implemented by errors that name their own failure kind,
// including *Error and the errors of lib/bagit.
type kinded interface {
	Kind() string
}

// KindOf returns the failure kind carried by err or anything it wraps,
// or "InternalError" when nothing in the chain names one.
func KindOf(err error) string {
	var k kinded
	if errors.As(err, &k) && k.Kind() != "" {
		return k.Kind()
	}
	return string(TypeInternal)
}
