package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mohammadpnp/user-upsert/internal/domain/mapping"
	domain "github.com/mohammadpnp/user-upsert/internal/domain/user"
	"github.com/mohammadpnp/user-upsert/internal/infrastructure/db/models"
)

// fixed user-table columns a record may be matched or checked against.
var fixedLookupColumns = map[string]string{
	"username": "username",
	"idnumber": "idnumber",
	"email":    "email",
}

// DirectoryRepository implements the user directory over Postgres. Simple
// CRUD goes through gorm; the profile-field match lookup uses raw SQL on the
// pgx pool.
type DirectoryRepository struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

func NewDirectoryRepository(db *gorm.DB, pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{db: db, pool: pool}
}

func (r *DirectoryRepository) FindByField(ctx context.Context, field mapping.FieldRef, value string) (*domain.User, error) {
	if field.IsCustom() {
		return r.findByProfileField(ctx, field.ShortName(), value)
	}

	column, ok := fixedLookupColumns[field.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, field.Name())
	}

	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("deleted = ?", false).
		Where(column+" = ?", value).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find user by %s: %w", column, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		return nil, domain.ErrAmbiguousMatch
	}

	return r.GetByID(ctx, rows[0].ID)
}

func (r *DirectoryRepository) findByProfileField(ctx context.Context, shortName, value string) (*domain.User, error) {
	var fieldID int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM user_profile_fields WHERE shortname = $1`, shortName).Scan(&fieldID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s%s", domain.ErrUnknownField, mapping.ProfileFieldPrefix, shortName)
		}
		return nil, fmt.Errorf("resolve profile field %s: %w", shortName, err)
	}

	rows, err := r.pool.Query(ctx, `
SELECT u.id
  FROM users u
  JOIN user_profile_data d ON d.user_id = u.id AND d.field_id = $1
 WHERE u.deleted = FALSE AND d.value = $2
 LIMIT 2
`, fieldID, value)
	if err != nil {
		return nil, fmt.Errorf("find user by profile field %s: %w", shortName, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > 1 {
		return nil, domain.ErrAmbiguousMatch
	}

	return r.GetByID(ctx, ids[0])
}

func (r *DirectoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var row models.User
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	profile, err := r.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		ID:          row.ID,
		Username:    row.Username,
		Auth:        row.Auth,
		Email:       row.Email,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		IDNumber:    row.IDNumber,
		Description: row.Description,
		Suspended:   row.Suspended,
		Deleted:     row.Deleted,
		Profile:     profile,
	}, nil
}

func (r *DirectoryRepository) loadProfile(ctx context.Context, userID string) (map[string]string, error) {
	var pairs []struct {
		ShortName string
		Value     string
	}

	err := r.db.WithContext(ctx).
		Table("user_profile_data AS d").
		Select("f.shortname AS short_name, d.value").
		Joins("JOIN user_profile_fields f ON f.id = d.field_id").
		Where("d.user_id = ?", userID).
		Scan(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("load profile data: %w", err)
	}

	if len(pairs) == 0 {
		return nil, nil
	}

	profile := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		profile[pair.ShortName] = pair.Value
	}
	return profile, nil
}

func (r *DirectoryRepository) IsFieldTaken(ctx context.Context, field, value, excludeID string) (bool, error) {
	column, ok := fixedLookupColumns[field]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrUnknownField, field)
	}

	query := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("deleted = ?", false).
		Where("LOWER("+column+") = LOWER(?)", value)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check %s taken: %w", column, err)
	}

	return count > 0, nil
}

func (r *DirectoryRepository) Insert(ctx context.Context, u *domain.User) (string, error) {
	row := models.User{
		ID:        uuid.NewString(),
		Username:  u.Username,
		Auth:      u.Auth,
		Password:  u.Password,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IDNumber:  u.IDNumber,
		Suspended: u.Suspended,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	return row.ID, nil
}

func (r *DirectoryRepository) Update(ctx context.Context, u *domain.User, updatePassword bool) error {
	updates := map[string]any{
		"username":  u.Username,
		"auth":      u.Auth,
		"email":     u.Email,
		"firstname": u.FirstName,
		"lastname":  u.LastName,
		"idnumber":  u.IDNumber,
		"suspended": u.Suspended,
	}
	if updatePassword {
		updates["password"] = u.Password
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}

	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// SoftDelete marks the user deleted and renames username and email so the
// values become available again for live users.
func (r *DirectoryRepository) SoftDelete(ctx context.Context, u *domain.User) error {
	timestamp := time.Now().Unix()

	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"deleted":  true,
			"username": fmt.Sprintf("%s.%d", strings.ToLower(u.Email), timestamp),
			"email":    fmt.Sprintf("%s.%d@deleted.invalid", u.ID, timestamp),
		}).Error
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

func (r *DirectoryRepository) ValidateProfile(ctx context.Context, u *domain.User) ([]domain.FieldError, error) {
	if len(u.Profile) == 0 {
		return nil, nil
	}

	fields, err := r.profileFieldsByShortName(ctx, u.Profile)
	if err != nil {
		return nil, err
	}

	var fieldErrors []domain.FieldError
	for shortName, value := range u.Profile {
		field, ok := fields[shortName]
		if !ok || !field.ForceUnique {
			continue
		}

		query := r.db.WithContext(ctx).
			Table("user_profile_data AS d").
			Joins("JOIN users u ON u.id = d.user_id AND u.deleted = FALSE").
			Where("d.field_id = ? AND d.value = ?", field.ID, value)
		if u.ID != "" {
			query = query.Where("d.user_id <> ?", u.ID)
		}

		var count int64
		if err := query.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("validate profile field %s: %w", shortName, err)
		}
		if count > 0 {
			fieldErrors = append(fieldErrors, domain.FieldError{
				Field:   mapping.ProfileFieldPrefix + shortName,
				Message: fmt.Sprintf("value %q is already used", value),
			})
		}
	}

	return fieldErrors, nil
}

// SaveProfile upserts the user's custom field values. Values for short names
// unknown to the schema are ignored.
func (r *DirectoryRepository) SaveProfile(ctx context.Context, u *domain.User) error {
	if len(u.Profile) == 0 {
		return nil
	}

	fields, err := r.profileFieldsByShortName(ctx, u.Profile)
	if err != nil {
		return err
	}

	for shortName, value := range u.Profile {
		field, ok := fields[shortName]
		if !ok {
			continue
		}

		row := models.ProfileData{FieldID: field.ID, UserID: u.ID, Value: value}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "field_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("save profile field %s: %w", shortName, err)
		}
	}

	return nil
}

func (r *DirectoryRepository) ListCustomFields(ctx context.Context) ([]mapping.CustomField, error) {
	var rows []models.ProfileField
	if err := r.db.WithContext(ctx).Order("shortname").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list profile fields: %w", err)
	}

	fields := make([]mapping.CustomField, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, mapping.CustomField{
			ShortName:   row.ShortName,
			Name:        row.Name,
			DataType:    row.DataType,
			ForceUnique: row.ForceUnique,
		})
	}

	return fields, nil
}

func (r *DirectoryRepository) profileFieldsByShortName(ctx context.Context, profile map[string]string) (map[string]models.ProfileField, error) {
	shortNames := make([]string, 0, len(profile))
	for shortName := range profile {
		shortNames = append(shortNames, shortName)
	}

	var rows []models.ProfileField
	err := r.db.WithContext(ctx).
		Where("shortname IN ?", shortNames).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load profile fields: %w", err)
	}

	fields := make(map[string]models.ProfileField, len(rows))
	for _, row := range rows {
		fields[row.ShortName] = row
	}
	return fields, nil
}
