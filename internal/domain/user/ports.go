package user

import (
	"context"

	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
)

// FieldError is one profile field constraint violation reported by the
// directory.
type FieldError struct {
	Field   string
	Message string
}

// Directory is the user store. Lookups and uniqueness checks are scoped to
// live (non-deleted) users.
type Directory interface {
	// FindByField returns the single live user whose field equals value,
	// nil when there is none, ErrAmbiguousMatch when there is more than
	// one and ErrUnknownField when the field is not part of the schema.
	FindByField(ctx context.Context, field mapping.FieldRef, value string) (*User, error)

	// IsFieldTaken reports whether a live user other than excludeID
	// already holds value in the given fixed field, case-insensitively.
	IsFieldTaken(ctx context.Context, field, value, excludeID string) (bool, error)

	Insert(ctx context.Context, u *User) (string, error)
	Update(ctx context.Context, u *User, updatePassword bool) error
	SoftDelete(ctx context.Context, u *User) error

	// ValidateProfile checks custom profile field constraints and returns
	// one FieldError per violation.
	ValidateProfile(ctx context.Context, u *User) ([]FieldError, error)
	SaveProfile(ctx context.Context, u *User) error

	GetByID(ctx context.Context, id string) (*User, error)
	ListCustomFields(ctx context.Context) ([]mapping.CustomField, error)
}

// AuthRegistry knows which authentication methods are enabled on the site.
type AuthRegistry interface {
	IsEnabled(method string) bool
}

// EmailPolicy validates email syntax and the site allow list.
type EmailPolicy interface {
	IsValid(email string) bool
	// Disallowed returns a reason when the email is rejected by site
	// policy, empty otherwise.
	Disallowed(email string) string
}

// SitePolicy carries site-wide flags read once per batch run.
type SitePolicy struct {
	AllowDuplicateEmails bool
}
