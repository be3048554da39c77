package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
	"github.com/mohammadpnp/user-upsert/internal/infrastructure/db/models"
)

const (
	settingFields      = "webservicefields"
	settingMatchField  = "usermatchfield"
	settingDefaultAuth = "defaultauth"
)

// SettingsRepository reads the raw mapping configuration from the settings
// table.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Load(ctx context.Context) (mapping.RawSettings, error) {
	var rows []models.Setting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return mapping.RawSettings{}, fmt.Errorf("load settings: %w", err)
	}

	raw := mapping.RawSettings{DataMap: make(map[string]string)}
	for _, row := range rows {
		switch row.Name {
		case settingFields:
			raw.Fields = row.Value
		case settingMatchField:
			raw.MatchField = row.Value
		case settingDefaultAuth:
			raw.DefaultAuth = row.Value
		default:
			if strings.HasPrefix(row.Name, mapping.DataMapPrefix) {
				raw.DataMap[row.Name] = row.Value
			}
		}
	}

	return raw, nil
}

// Save writes one raw setting, overwriting any previous value.
func (r *SettingsRepository) Save(ctx context.Context, name, value string) error {
	row := models.Setting{Name: name, Value: value}
	err := r.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("save setting %s: %w", name, err)
	}
	return nil
}
