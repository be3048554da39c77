package user

import (
	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
)

// Status carried by an incoming record.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusActive, StatusSuspended, StatusDeleted:
		return Status(value), nil
	}
	return "", &UpsertError{Kind: KindInvalidStatus, Value: value}
}

// User is the directory entity. Description is nil when the stored value was
// not loaded; a nil description is never written back. Profile holds custom
// profile field values keyed by short name.
type User struct {
	ID          string
	Username    string
	Auth        string
	Password    string
	Email       string
	FirstName   string
	LastName    string
	IDNumber    string
	Description *string
	Suspended   bool
	Deleted     bool
	Profile     map[string]string
}

// SetField applies one mapped internal field to the entity. Status is not an
// entity field, and identifiers outside the mapped vocabulary are ignored,
// so a record can only touch fields the mapping names.
func (u *User) SetField(ref mapping.FieldRef, value string) {
	if ref.IsCustom() {
		if u.Profile == nil {
			u.Profile = make(map[string]string)
		}
		u.Profile[ref.ShortName()] = value
		return
	}

	switch ref.Name() {
	case "username":
		u.Username = value
	case "auth":
		u.Auth = value
	case "password":
		u.Password = value
	case "email":
		u.Email = value
	case "firstname":
		u.FirstName = value
	case "lastname":
		u.LastName = value
	case "idnumber":
		u.IDNumber = value
	case "description":
		u.Description = &value
	}
}
