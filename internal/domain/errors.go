package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input, e.g. an unknown enum value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation on an unknown id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidTransitionError reports a session state machine violation.
type InvalidTransitionError struct {
	SessionID string
	From      SessionStatus
	Action    string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s session %s in state %s", e.Action, e.SessionID, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ConflictError reports a write that would break a uniqueness invariant:
// a second active session, or a second rule for the same identity.
type ConflictError struct {
	Resource string
	Key      string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict on %s: %s", e.Resource, e.Key, e.Reason)
}

// ErrorKind names the taxonomy bucket of err, or "" for infrastructure errors.
func ErrorKind(err error) string {
	var (
		ve *ValidationError
		ne *NotFoundError
		te *InvalidTransitionError
		ce *ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ne):
		return "not_found"
	case errors.As(err, &te):
		return "invalid_transition"
	case errors.As(err, &ce):
		return "conflict"
	}
	return ""
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
