package user

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
)

// Record is one incoming unit of work, keyed by external field name.
type Record map[string]string

// UpsertUser reconciles one record against the directory: create, update or
// soft-delete depending on the match result and the record status.
type UpsertUser interface {
	Execute(ctx context.Context, record Record) error
}

type upsertUser struct {
	cfg    *mapping.Config
	dir    domain.Directory
	auth   domain.AuthRegistry
	email  domain.EmailPolicy
	policy domain.SitePolicy

	matchField   mapping.FieldRef
	matchName    string
	usernameName string
	emailName    string
	statusName   string
	authName     string
	passwordName string
}

// NewUpsertUser fails with ErrNotConfigured unless the configuration is
// ready and the match, username, email and status fields resolve to external
// names. The checks run once here, not per record.
func NewUpsertUser(
	cfg *mapping.Config,
	dir domain.Directory,
	auth domain.AuthRegistry,
	email domain.EmailPolicy,
	policy domain.SitePolicy,
) (UpsertUser, error) {
	if !cfg.IsReady() {
		return nil, domain.ErrNotConfigured
	}

	uc := &upsertUser{
		cfg:        cfg,
		dir:        dir,
		auth:       auth,
		email:      email,
		policy:     policy,
		matchField: mapping.ParseFieldRef(cfg.MatchField()),
	}

	var ok bool
	if uc.matchName, ok = cfg.ExternalName(cfg.MatchField()); !ok {
		return nil, domain.ErrNotConfigured
	}
	if uc.usernameName, ok = cfg.ExternalName("username"); !ok {
		return nil, domain.ErrNotConfigured
	}
	if uc.emailName, ok = cfg.ExternalName("email"); !ok {
		return nil, domain.ErrNotConfigured
	}
	if uc.statusName, ok = cfg.ExternalName("status"); !ok {
		return nil, domain.ErrNotConfigured
	}

	// Optional fields.
	uc.authName, _ = cfg.ExternalName("auth")
	uc.passwordName, _ = cfg.ExternalName("password")

	return uc, nil
}

func (uc *upsertUser) Execute(ctx context.Context, record Record) error {
	for _, field := range uc.cfg.MandatoryFields() {
		externalName, _ := uc.cfg.ExternalName(field)
		if record[externalName] == "" {
			return &domain.UpsertError{Kind: domain.KindMissingField, Value: externalName}
		}
	}

	status, err := domain.ParseStatus(record[uc.statusName])
	if err != nil {
		return err
	}

	existing, err := uc.dir.FindByField(ctx, uc.matchField, record[uc.matchName])
	if err != nil {
		return err
	}

	if status == domain.StatusDeleted {
		// Deleting a user that does not exist is a no-op.
		if existing == nil {
			return nil
		}
		if err := uc.dir.SoftDelete(ctx, existing); err != nil {
			return &domain.UpsertError{Kind: domain.KindDeleteFailed, Detail: err.Error()}
		}
		return nil
	}

	return uc.applyRecord(ctx, record, existing, status)
}

func (uc *upsertUser) applyRecord(ctx context.Context, record Record, existing *domain.User, status domain.Status) error {
	excludeID := ""
	updatePassword := false

	if existing != nil {
		excludeID = existing.ID
		if _, ok := uc.recordPassword(record); ok {
			updatePassword = true
		}
	}

	email := record[uc.emailName]
	if err := uc.validateEmail(email); err != nil {
		return err
	}

	if !uc.policy.AllowDuplicateEmails {
		taken, err := uc.dir.IsFieldTaken(ctx, "email", email, excludeID)
		if err != nil {
			return fmt.Errorf("check email taken: %w", err)
		}
		if taken {
			return &domain.UpsertError{Kind: domain.KindEmailTaken, Value: email}
		}
	}

	username := record[uc.usernameName]
	taken, err := uc.dir.IsFieldTaken(ctx, "username", username, excludeID)
	if err != nil {
		return fmt.Errorf("check username taken: %w", err)
	}
	if taken {
		return &domain.UpsertError{Kind: domain.KindUsernameTaken, Value: username}
	}

	auth := uc.resolveAuth(record, existing)
	if !uc.auth.IsEnabled(auth) {
		return &domain.UpsertError{Kind: domain.KindInvalidAuth, Value: auth}
	}

	target := existing
	if target == nil {
		// Create with an empty credential first; a password supplied in
		// the record is applied in the update below so it goes through
		// the usual strength checks.
		target = &domain.User{Username: username, Auth: auth}

		id, err := uc.dir.Insert(ctx, target)
		if err != nil {
			return &domain.UpsertError{Kind: domain.KindCreateFailed, Detail: err.Error()}
		}
		target.ID = id

		if password, ok := uc.recordPassword(record); ok {
			target.Password = password
			updatePassword = true
		}
	}

	target.Suspended = status == domain.StatusSuspended

	for internalField, externalName := range uc.cfg.Mapping() {
		if value, ok := record[externalName]; ok {
			target.SetField(mapping.ParseFieldRef(internalField), value)
		}
	}

	fieldErrors, err := uc.dir.ValidateProfile(ctx, target)
	if err != nil {
		return &domain.UpsertError{Kind: domain.KindPersistence, Detail: err.Error()}
	}
	if len(fieldErrors) > 0 {
		return &domain.UpsertError{Kind: domain.KindFieldValidation, Detail: formatFieldErrors(fieldErrors)}
	}

	if err := uc.dir.SaveProfile(ctx, target); err != nil {
		return &domain.UpsertError{Kind: domain.KindPersistence, Detail: err.Error()}
	}
	if err := uc.dir.Update(ctx, target, updatePassword); err != nil {
		return &domain.UpsertError{Kind: domain.KindPersistence, Detail: err.Error()}
	}

	return nil
}

func (uc *upsertUser) validateEmail(email string) error {
	if !uc.email.IsValid(email) {
		return &domain.UpsertError{Kind: domain.KindInvalidEmail, Value: email}
	}
	if reason := uc.email.Disallowed(email); reason != "" {
		return &domain.UpsertError{Kind: domain.KindEmailNotAllowed, Value: email, Detail: reason}
	}
	return nil
}

// resolveAuth prefers an explicit value from the record, then the auth
// method of the matched user, then the configured default.
func (uc *upsertUser) resolveAuth(record Record, existing *domain.User) string {
	if uc.authName != "" && record[uc.authName] != "" {
		return record[uc.authName]
	}
	if existing != nil && existing.Auth != "" {
		return existing.Auth
	}
	return uc.cfg.DefaultAuth()
}

func (uc *upsertUser) recordPassword(record Record) (string, bool) {
	if uc.passwordName == "" {
		return "", false
	}
	password, ok := record[uc.passwordName]
	return password, ok
}

func formatFieldErrors(fieldErrors []domain.FieldError) string {
	parts := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fieldError.Field, fieldError.Message))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
