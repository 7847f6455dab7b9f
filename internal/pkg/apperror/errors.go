package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindAuth Kind = iota
	KindPermission
	KindValidation
	KindNotFound
	KindTransient
)

// Error is the typed error returned by the store, directory and coordinator
// layers so callers can render a specific message instead of a generic 500.
type Error struct {
	Kind    Kind
	Message string
	Err     error
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

func NewAuth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func NewPermission(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

func NewValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NewTransient wraps a persistence failure. These are not retried here;
// the caller may retry.
func NewTransient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

func is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsAuth(err error) bool       { return is(err, KindAuth) }
func IsPermission(err error) bool { return is(err, KindPermission) }
func IsValidation(err error) bool { return is(err, KindValidation) }
func IsNotFound(err error) bool   { return is(err, KindNotFound) }
func IsTransient(err error) bool  { return is(err, KindTransient) }
