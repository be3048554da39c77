package user_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	app "github.com/mohammadpnp/user-upsert/internal/application/user"
	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
)

type fakeDirectory struct {
	found   *domain.User
	findErr error

	emailOwners    map[string]string
	usernameOwners map[string]string

	insertErr     error
	updateErr     error
	saveErr       error
	softDeleteErr error
	fieldErrors   []domain.FieldError
	validateErr   error

	inserted        []*domain.User
	updated         []*domain.User
	updatedPassword []bool
	softDeleted     []*domain.User
	savedProfiles   []*domain.User
}

func (f *fakeDirectory) FindByField(ctx context.Context, field mapping.FieldRef, value string) (*domain.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.found, nil
}

func (f *fakeDirectory) IsFieldTaken(ctx context.Context, field, value, excludeID string) (bool, error) {
	owners := f.usernameOwners
	if field == "email" {
		owners = f.emailOwners
	}
	owner, ok := owners[strings.ToLower(value)]
	return ok && owner != excludeID, nil
}

func (f *fakeDirectory) Insert(ctx context.Context, u *domain.User) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	copied := *u
	f.inserted = append(f.inserted, &copied)
	return "3b8f4c65-7a41-4d9f-9a54-2f6f95f1a111", nil
}

func (f *fakeDirectory) Update(ctx context.Context, u *domain.User, updatePassword bool) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	copied := *u
	f.updated = append(f.updated, &copied)
	f.updatedPassword = append(f.updatedPassword, updatePassword)
	return nil
}

func (f *fakeDirectory) SoftDelete(ctx context.Context, u *domain.User) error {
	if f.softDeleteErr != nil {
		return f.softDeleteErr
	}
	f.softDeleted = append(f.softDeleted, u)
	return nil
}

func (f *fakeDirectory) ValidateProfile(ctx context.Context, u *domain.User) ([]domain.FieldError, error) {
	return f.fieldErrors, f.validateErr
}

func (f *fakeDirectory) SaveProfile(ctx context.Context, u *domain.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedProfiles = append(f.savedProfiles, u)
	return nil
}

func (f *fakeDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (f *fakeDirectory) ListCustomFields(ctx context.Context) ([]mapping.CustomField, error) {
	return nil, nil
}

type fakeAuthRegistry struct {
	enabled []string
}

func (f *fakeAuthRegistry) IsEnabled(method string) bool {
	for _, enabled := range f.enabled {
		if enabled == method {
			return true
		}
	}
	return false
}

type fakeEmailPolicy struct {
	invalid    map[string]bool
	disallowed map[string]string
}

func (f *fakeEmailPolicy) IsValid(email string) bool {
	return !f.invalid[email]
}

func (f *fakeEmailPolicy) Disallowed(email string) string {
	return f.disallowed[email]
}

func testConfig() *mapping.Config {
	return mapping.ParseConfig(mapping.RawSettings{
		Fields: strings.Join([]string{
			"U | Username",
			"F | First name",
			"L | Last name",
			"E | Email",
			"S | Status",
			"A | Auth method",
			"P | Password",
			"I | ID number",
			"D | Description",
			"X | Employee ID",
		}, "\n"),
		DataMap: map[string]string{
			"data_map_username":            "U",
			"data_map_firstname":           "F",
			"data_map_lastname":            "L",
			"data_map_email":               "E",
			"data_map_status":              "S",
			"data_map_auth":                "A",
			"data_map_password":            "P",
			"data_map_idnumber":            "I",
			"data_map_description":         "D",
			"data_map_profile_field_empid": "X",
		},
	})
}

func newEngine(t *testing.T, dir *fakeDirectory) app.UpsertUser {
	t.Helper()

	uc, err := app.NewUpsertUser(
		testConfig(),
		dir,
		&fakeAuthRegistry{enabled: []string{"manual", "ldap"}},
		&fakeEmailPolicy{
			invalid:    map[string]bool{"bad-email": true},
			disallowed: map[string]string{"evil@spam.example": "domain is blocked"},
		},
		domain.SitePolicy{},
	)
	if err != nil {
		t.Fatalf("expected engine to construct, got %v", err)
	}
	return uc
}

func validRecord() app.Record {
	return app.Record{
		"U": "alice",
		"F": "Alice",
		"L": "A",
		"E": "a@x.com",
		"S": "active",
	}
}

func upsertErrorKind(t *testing.T, err error) domain.ErrorKind {
	t.Helper()

	var upsertErr *domain.UpsertError
	if !errors.As(err, &upsertErr) {
		t.Fatalf("expected *UpsertError, got %v", err)
	}
	return upsertErr.Kind
}

func TestNewUpsertUserNotConfigured(t *testing.T) {
	t.Parallel()

	_, err := app.NewUpsertUser(
		mapping.ParseConfig(mapping.RawSettings{}),
		&fakeDirectory{},
		&fakeAuthRegistry{},
		&fakeEmailPolicy{},
		domain.SitePolicy{},
	)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestUpsertCreatesUser(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	uc := newEngine(t, dir)

	if err := uc.Execute(context.Background(), validRecord()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(dir.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(dir.inserted))
	}
	created := dir.inserted[0]
	if created.Username != "alice" || created.Auth != "manual" || created.Password != "" {
		t.Fatalf("unexpected created user: %#v", created)
	}

	if len(dir.updated) != 1 {
		t.Fatalf("expected 1 update, got %d", len(dir.updated))
	}
	updated := dir.updated[0]
	if updated.Suspended {
		t.Fatal("active user must not be suspended")
	}
	if updated.FirstName != "Alice" || updated.LastName != "A" || updated.Email != "a@x.com" {
		t.Fatalf("unexpected updated user: %#v", updated)
	}
	if dir.updatedPassword[0] {
		t.Fatal("no password in record, expected password update to be skipped")
	}
}

func TestUpsertCreateAppliesRecordPassword(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	uc := newEngine(t, dir)

	record := validRecord()
	record["P"] = "s3cret!"

	if err := uc.Execute(context.Background(), record); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Creation itself bypasses strength checks, so the password must go
	// through the update.
	if dir.inserted[0].Password != "" {
		t.Fatal("expected creation with an empty credential")
	}
	if !dir.updatedPassword[0] {
		t.Fatal("expected password to be updated")
	}
	if dir.updated[0].Password != "s3cret!" {
		t.Fatalf("unexpected password: %q", dir.updated[0].Password)
	}
}

func TestUpsertSuspendsExistingUser(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		found: &domain.User{ID: "bob-id", Username: "bob", Auth: "manual", Email: "bob@x.com"},
		emailOwners: map[string]string{
			"bob@x.com": "bob-id",
		},
		usernameOwners: map[string]string{
			"bob": "bob-id",
		},
	}
	uc := newEngine(t, dir)

	err := uc.Execute(context.Background(), app.Record{
		"U": "bob", "F": "Bob", "L": "B", "E": "bob@x.com", "S": "suspended",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(dir.inserted) != 0 {
		t.Fatal("expected no new user")
	}
	if len(dir.updated) != 1 || !dir.updated[0].Suspended {
		t.Fatalf("expected existing user suspended, got %#v", dir.updated)
	}
}

func TestUpsertReactivatesSuspendedUser(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		found: &domain.User{ID: "bob-id", Username: "bob", Auth: "manual", Suspended: true},
	}
	uc := newEngine(t, dir)

	record := validRecord()
	record["U"] = "bob"
	if err := uc.Execute(context.Background(), record); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if dir.updated[0].Suspended {
		t.Fatal("active status must clear the suspended flag")
	}
}

func TestUpsertMissingMandatoryField(t *testing.T) {
	t.Parallel()

	uc := newEngine(t, &fakeDirectory{})

	record := validRecord()
	delete(record, "E")

	err := uc.Execute(context.Background(), record)
	if upsertErrorKind(t, err) != domain.KindMissingField {
		t.Fatalf("expected missing field error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"E"`) {
		t.Fatalf("expected message to name the external field, got %q", err.Error())
	}
}

func TestUpsertEmptyMandatoryFieldCountsAsMissing(t *testing.T) {
	t.Parallel()

	uc := newEngine(t, &fakeDirectory{})

	record := validRecord()
	record["L"] = ""

	err := uc.Execute(context.Background(), record)
	if upsertErrorKind(t, err) != domain.KindMissingField {
		t.Fatalf("expected missing field error, got %v", err)
	}
}

func TestUpsertInvalidStatus(t *testing.T) {
	t.Parallel()

	uc := newEngine(t, &fakeDirectory{})

	record := validRecord()
	record["S"] = "disabled"

	err := uc.Execute(context.Background(), record)
	if upsertErrorKind(t, err) != domain.KindInvalidStatus {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestUpsertDeletesExistingUser(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{found: &domain.User{ID: "bob-id", Username: "bob"}}
	uc := newEngine(t, dir)

	record := validRecord()
	record["U"] = "bob"
	record["S"] = "deleted"

	if err := uc.Execute(context.Background(), record); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(dir.softDeleted) != 1 {
		t.Fatalf("expected 1 soft delete, got %d", len(dir.softDeleted))
	}
	if len(dir.updated) != 0 || len(dir.inserted) != 0 {
		t.Fatal("delete must not create or update")
	}
}

func TestUpsertDeleteUnknownUserIsNoop(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	uc := newEngine(t, dir)

	record := validRecord()
	record["S"] = "deleted"

	if err := uc.Execute(context.Background(), record); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(dir.softDeleted) != 0 {
		t.Fatal("expected no soft delete")
	}
}

func TestUpsertOwnEmailIsNotTaken(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		found:       &domain.User{ID: "alice-id", Username: "alice", Auth: "manual", Email: "a@x.com"},
		emailOwners: map[string]string{"a@x.com": "alice-id"},
	}
	uc := newEngine(t, dir)

	if err := uc.Execute(context.Background(), validRecord()); err != nil {
		t.Fatalf("updating a user with its own email must not fail, got %v", err)
	}
}

func TestUpsertEmailTaken(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		emailOwners: map[string]string{"a@x.com": "someone-else"},
	}
	uc := newEngine(t, dir)

	err := uc.Execute(context.Background(), validRecord())
	if upsertErrorKind(t, err) != domain.KindEmailTaken {
		t.Fatalf("expected email taken error, got %v", err)
	}
}

func TestUpsertEmailTakenSkippedWhenDuplicatesAllowed(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		emailOwners: map[string]string{"a@x.com": "someone-else"},
	}

	uc, err := app.NewUpsertUser(
		testConfig(),
		dir,
		&fakeAuthRegistry{enabled: []string{"manual"}},
		&fakeEmailPolicy{},
		domain.SitePolicy{AllowDuplicateEmails: true},
	)
	if err != nil {
		t.Fatalf("expected engine to construct, got %v", err)
	}

	if err := uc.Execute(context.Background(), validRecord()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestUpsertUsernameTaken(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		usernameOwners: map[string]string{"alice": "someone-else"},
	}
	uc := newEngine(t, dir)

	err := uc.Execute(context.Background(), validRecord())
	if upsertErrorKind(t, err) != domain.KindUsernameTaken {
		t.Fatalf("expected username taken error, got %v", err)
	}
}

func TestUpsertInvalidEmail(t *testing.T) {
	t.Parallel()

	uc := newEngine(t, &fakeDirectory{})

	record := validRecord()
	record["E"] = "bad-email"

	err := uc.Execute(context.Background(), record)
	if upsertErrorKind(t, err) != domain.KindInvalidEmail {
		t.Fatalf("expected invalid email error, got %v", err)
	}
}

func TestUpsertEmailNotAllowed(t *testing.T) {
	t.Parallel()

	uc := newEngine(t, &fakeDirectory{})

	record := validRecord()
	record["E"] = "evil@spam.example"

	err := uc.Execute(context.Background(), record)
	if upsertErrorKind(t, err) != domain.KindEmailNotAllowed {
		t.Fatalf("expected email not allowed error, got %v", err)
	}
	if !strings.Contains(err.Error(), "domain is blocked") {
		t.Fatalf("expected policy reason in message, got %q", err.Error())
	}
}

func TestUpsertInvalidAuth(t *testing.T) {
	t.Parallel()

	uc := newEngine(t, &fakeDirectory{})

	record := validRecord()
	record["A"] = "cas"

	err := uc.Execute(context.Background(), record)
	if upsertErrorKind(t, err) != domain.KindInvalidAuth {
		t.Fatalf("expected invalid auth error, got %v", err)
	}
}

func TestUpsertAuthFallsBackToExistingUser(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		found: &domain.User{ID: "alice-id", Username: "alice", Auth: "ldap"},
	}
	uc := newEngine(t, dir)

	// Record omits auth: the matched user's method wins over the default.
	if err := uc.Execute(context.Background(), validRecord()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dir.updated[0].Auth != "ldap" {
		t.Fatalf("expected existing auth kept, got %q", dir.updated[0].Auth)
	}
}

func TestUpsertPartialUpdateKeepsUnsetFields(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		found: &domain.User{
			ID:       "alice-id",
			Username: "alice",
			Auth:     "manual",
			IDNumber: "keep-me",
			Profile:  map[string]string{"empid": "E-1"},
		},
	}
	uc := newEngine(t, dir)

	// Mapped but absent from the record: idnumber, description, empid.
	if err := uc.Execute(context.Background(), validRecord()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	updated := dir.updated[0]
	if updated.IDNumber != "keep-me" {
		t.Fatalf("unset field must keep prior value, got %q", updated.IDNumber)
	}
	if updated.Profile["empid"] != "E-1" {
		t.Fatalf("unset profile field must keep prior value, got %#v", updated.Profile)
	}
	if updated.Description != nil {
		t.Fatal("unloaded description must stay unloaded")
	}
}

func TestUpsertAppliesMappedProfileField(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	uc := newEngine(t, dir)

	record := validRecord()
	record["X"] = "E-42"

	if err := uc.Execute(context.Background(), record); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(dir.savedProfiles) != 1 || dir.savedProfiles[0].Profile["empid"] != "E-42" {
		t.Fatalf("expected profile saved, got %#v", dir.savedProfiles)
	}
}

func TestUpsertAmbiguousMatchPropagates(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{findErr: domain.ErrAmbiguousMatch}
	uc := newEngine(t, dir)

	err := uc.Execute(context.Background(), validRecord())
	if !errors.Is(err, domain.ErrAmbiguousMatch) {
		t.Fatalf("expected ErrAmbiguousMatch, got %v", err)
	}

	var upsertErr *domain.UpsertError
	if errors.As(err, &upsertErr) {
		t.Fatal("ambiguous match must not be a record-scoped error")
	}
}

func TestUpsertFieldValidationAggregatesErrors(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{fieldErrors: []domain.FieldError{
		{Field: "profile_field_empid", Message: "value is already used"},
		{Field: "profile_field_badge", Message: "value is required"},
	}}
	uc := newEngine(t, dir)

	err := uc.Execute(context.Background(), validRecord())
	if upsertErrorKind(t, err) != domain.KindFieldValidation {
		t.Fatalf("expected field validation error, got %v", err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "profile_field_empid: value is already used") ||
		!strings.Contains(msg, "profile_field_badge: value is required") {
		t.Fatalf("expected aggregated message, got %q", msg)
	}
}

func TestUpsertPersistenceFailure(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{updateErr: errors.New("password policy rejected")}
	uc := newEngine(t, dir)

	err := uc.Execute(context.Background(), validRecord())
	if upsertErrorKind(t, err) != domain.KindPersistence {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if !strings.Contains(err.Error(), "password policy rejected") {
		t.Fatalf("expected collaborator detail, got %q", err.Error())
	}
}
