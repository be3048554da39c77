package mapping

import "strings"

const (
	// DataMapPrefix keys the per-field mapping assignments in settings.
	DataMapPrefix = "data_map_"

	DefaultMatchField  = "username"
	DefaultAuthMethod  = "manual"
	supportedFieldType = "text"
)

// fixedMandatoryFields must all be mapped and present in every record.
var fixedMandatoryFields = []string{"username", "lastname", "firstname", "email", "status"}

// matchFieldsFromUserTable are always supported as match fields.
var matchFieldsFromUserTable = map[string]string{
	"username": "Username",
	"idnumber": "ID number",
	"email":    "Email address",
}

// RawSettings is the user-authored configuration as stored: a multi-line
// pipe-delimited field list, one mapping assignment per internal field, the
// match field and the default auth method.
type RawSettings struct {
	Fields      string
	DataMap     map[string]string
	MatchField  string
	DefaultAuth string
}

// Config is the validated field mapping for one batch run. It is immutable
// once parsed; incomplete configuration is reported via IsReady, never as an
// error.
type Config struct {
	fields      map[string]string
	dataMap     map[string]string
	matchField  string
	defaultAuth string
}

// ParseConfig never fails: descriptor lines and assignments that do not meet
// the format are dropped.
func ParseConfig(raw RawSettings) *Config {
	cfg := &Config{
		fields:      parseFieldDescriptors(raw.Fields),
		dataMap:     parseDataMap(raw.DataMap),
		matchField:  raw.MatchField,
		defaultAuth: raw.DefaultAuth,
	}

	if cfg.matchField == "" {
		cfg.matchField = DefaultMatchField
	}
	if cfg.defaultAuth == "" {
		cfg.defaultAuth = DefaultAuthMethod
	}

	return cfg
}

// parseFieldDescriptors keeps only lines of the form "name | description"
// with a non-empty name without spaces and a non-empty description. A
// repeated name overwrites the earlier line.
func parseFieldDescriptors(text string) map[string]string {
	fields := make(map[string]string)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 2 {
			continue
		}

		name := strings.TrimSpace(parts[0])
		description := strings.TrimSpace(parts[1])
		if name == "" || strings.Contains(name, " ") || description == "" {
			continue
		}

		fields[name] = description
	}

	return fields
}

// parseDataMap accepts assignments keyed by the data_map_ prefix with a
// non-empty external field name.
func parseDataMap(assignments map[string]string) map[string]string {
	dataMap := make(map[string]string)

	for key, value := range assignments {
		if !strings.HasPrefix(key, DataMapPrefix) || value == "" {
			continue
		}
		dataMap[key[len(DataMapPrefix):]] = value
	}

	return dataMap
}

// Descriptors returns the configured external fields and their descriptions.
func (c *Config) Descriptors() map[string]string {
	return c.fields
}

// Mapping returns internal field identifier to external field name.
func (c *Config) Mapping() map[string]string {
	return c.dataMap
}

func (c *Config) MatchField() string {
	return c.matchField
}

func (c *Config) DefaultAuth() string {
	return c.defaultAuth
}

// ExternalName resolves the external field name an internal field is mapped
// to.
func (c *Config) ExternalName(internalField string) (string, bool) {
	name, ok := c.dataMap[internalField]
	return name, ok
}

// MandatoryFields returns the fixed mandatory fields with the match field
// appended when it is not already one of them.
func (c *Config) MandatoryFields() []string {
	fields := make([]string, len(fixedMandatoryFields), len(fixedMandatoryFields)+1)
	copy(fields, fixedMandatoryFields)

	for _, field := range fixedMandatoryFields {
		if field == c.matchField {
			return fields
		}
	}

	return append(fields, c.matchField)
}

// IsReady reports whether the configuration is complete enough to run the
// upsert engine: at least one external field, the match field and every
// mandatory field mapped, and every mapped external name configured.
func (c *Config) IsReady() bool {
	if len(c.fields) == 0 {
		return false
	}

	if _, ok := c.dataMap[c.matchField]; !ok {
		return false
	}

	for _, field := range c.MandatoryFields() {
		if _, ok := c.dataMap[field]; !ok {
			return false
		}
	}

	for _, externalName := range c.dataMap {
		if _, ok := c.fields[externalName]; !ok {
			return false
		}
	}

	return true
}

// CustomField describes a site-defined profile field as reported by the
// directory schema.
type CustomField struct {
	ShortName   string
	Name        string
	DataType    string
	ForceUnique bool
}

// SupportedMatchFields returns identifier to display label for every field a
// user may be matched by: the fixed user-table fields plus enforced-unique
// custom fields of a supported simple type.
func SupportedMatchFields(customFields []CustomField) map[string]string {
	fields := make(map[string]string, len(matchFieldsFromUserTable)+len(customFields))
	for name, label := range matchFieldsFromUserTable {
		fields[name] = label
	}

	for _, field := range customFields {
		if field.DataType != supportedFieldType || !field.ForceUnique {
			continue
		}
		fields[CustomFieldRef(field.ShortName).Name()] = field.Name
	}

	return fields
}
