package user

import (
	"errors"
	"fmt"
)

// Fatal errors. These indicate a misconfigured site or broken directory
// data rather than a problem with one record, and are not converted into
// per-record failures.
var (
	ErrNotConfigured  = errors.New("upsert is not configured")
	ErrAmbiguousMatch = errors.New("more than one user matches")
	ErrUnknownField   = errors.New("unknown user field")
	ErrUserNotFound   = errors.New("user not found")
)

// ErrorKind classifies a per-record upsert failure.
type ErrorKind string

const (
	KindMissingField    ErrorKind = "missing_field"
	KindInvalidStatus   ErrorKind = "invalid_status"
	KindInvalidEmail    ErrorKind = "invalid_email"
	KindEmailNotAllowed ErrorKind = "email_not_allowed"
	KindEmailTaken      ErrorKind = "email_taken"
	KindUsernameTaken   ErrorKind = "username_taken"
	KindInvalidAuth     ErrorKind = "invalid_auth"
	KindCreateFailed    ErrorKind = "create_failed"
	KindDeleteFailed    ErrorKind = "delete_failed"
	KindFieldValidation ErrorKind = "field_validation"
	KindPersistence     ErrorKind = "persistence"
)

// UpsertError is a recoverable, record-scoped failure. Value carries the
// offending field name or value, Detail any collaborator diagnostics.
type UpsertError struct {
	Kind   ErrorKind
	Value  string
	Detail string
}

func (e *UpsertError) Error() string {
	var msg string

	switch e.Kind {
	case KindMissingField:
		msg = fmt.Sprintf("missing mandatory field %q", e.Value)
	case KindInvalidStatus:
		msg = fmt.Sprintf("invalid user status %q", e.Value)
	case KindInvalidEmail:
		msg = fmt.Sprintf("invalid email %q", e.Value)
	case KindEmailNotAllowed:
		msg = fmt.Sprintf("email %q is not allowed", e.Value)
	case KindEmailTaken:
		msg = fmt.Sprintf("email %q is already taken", e.Value)
	case KindUsernameTaken:
		msg = fmt.Sprintf("username %q is already taken", e.Value)
	case KindInvalidAuth:
		msg = fmt.Sprintf("auth method %q is not enabled", e.Value)
	case KindCreateFailed:
		msg = "creating user failed"
	case KindDeleteFailed:
		msg = "deleting user failed"
	case KindFieldValidation:
		msg = "profile field validation failed"
	case KindPersistence:
		msg = "updating user failed"
	default:
		msg = string(e.Kind)
	}

	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
