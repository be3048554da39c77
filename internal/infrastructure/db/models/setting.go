package models

import "time"

// Setting is one raw configuration entry. Mapping assignments use the
// data_map_ name prefix, the descriptor list lives under webservicefields.
type Setting struct {
	Name      string `gorm:"size:100;primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Setting) TableName() string {
	return "upsert_settings"
}
