package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a collaborator failure and decides how callers react to it.
type Kind string

const (
	// Transient failures are retried within a stage's attempt budget.
	Transient Kind = "transient"
	// Permanent failures (quota, abuse, bad credentials) are never retried.
	Permanent Kind = "permanent"
	// Malformed output is repaired or replaced by a fallback artifact.
	Malformed    Kind = "malformed"
	NotFound     Kind = "not_found"
	Unauthorized Kind = "unauthorized"
	// Persistence failures come from the lesson store's final save.
	Persistence Kind = "persistence"
)

const (
	QuotaExceededMessage      = "AI service quota exceeded. Please try again later."
	UnavailableMessage        = "AI content analysis service is currently unavailable. Please try again in a few minutes."
	CredentialRejectedMessage = "AI service rejected its credentials. Please contact the administrator."
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("missing or invalid credential")
)

// Error is the typed failure returned by collaborators and the gateway.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed failure with a user-facing message.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Wrap classifies err without replacing its message.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the classification of err. Unclassified errors are Transient,
// except for the sentinel errors which map to their own kinds.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrUnauthorized):
		return Unauthorized
	}
	return Transient
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// annotate attaches op to err, classifying it as Transient when untyped.
// Context errors pass through unchanged so cancellation stays recognizable.
func annotate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ge *Error
	if errors.As(err, &ge) {
		if ge.Op == "" {
			ge.Op = op
		}
		return err
	}
	return &Error{Kind: KindOf(err), Op: op, Err: err}
}
