package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping. Services return *Error;
// handlers map Kind to a status code and never expose Err.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindNoEligibleAgents Kind = "NO_ELIGIBLE_AGENTS"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindForbidden        Kind = "FORBIDDEN"
	KindPersistence      Kind = "PERSISTENCE_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

func NoEligibleAgents(msg string) error { return &Error{Kind: KindNoEligibleAgents, Message: msg} }

func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

// Persistence wraps a storage failure. msg is what the operator sees in logs;
// callers only ever get a generic message.
func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// Wrap passes *Error values through unchanged and wraps anything else as a
// Persistence error. Services use it on errors coming back from a
// transaction, where domain errors and storage failures mix.
func Wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Persistence(msg, err)
}

// KindOf returns the Kind of err, or KindPersistence for anything that is
// not an *Error (unknown failures are treated as internal).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

func IsValidation(err error) bool       { return is(err, KindValidation) }
func IsNotFound(err error) bool         { return is(err, KindNotFound) }
func IsConflict(err error) bool         { return is(err, KindConflict) }
func IsNoEligibleAgents(err error) bool { return is(err, KindNoEligibleAgents) }
func IsPersistence(err error) bool      { return err != nil && KindOf(err) == KindPersistence }

func is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
