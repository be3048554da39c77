package mapping

import "strings"

// ProfileFieldPrefix marks internal field identifiers that refer to a
// site-defined profile field rather than a fixed user attribute.
const ProfileFieldPrefix = "profile_field_"

// FieldRef identifies either a fixed user attribute or a custom profile
// field by its short name.
type FieldRef struct {
	name   string
	custom bool
	short  string
}

func ParseFieldRef(name string) FieldRef {
	if strings.HasPrefix(name, ProfileFieldPrefix) {
		return FieldRef{
			name:   name,
			custom: true,
			short:  name[len(ProfileFieldPrefix):],
		}
	}
	return FieldRef{name: name, short: name}
}

func CustomFieldRef(shortName string) FieldRef {
	return FieldRef{
		name:   ProfileFieldPrefix + shortName,
		custom: true,
		short:  shortName,
	}
}

// Name returns the full internal field identifier, prefix included.
func (r FieldRef) Name() string {
	return r.name
}

func (r FieldRef) IsCustom() bool {
	return r.custom
}

// ShortName returns the profile field short name for custom fields and the
// identifier itself for fixed fields.
func (r FieldRef) ShortName() string {
	return r.short
}
