package models

import "time"

type User struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	Username    string  `gorm:"size:100;not null;index"`
	Auth        string  `gorm:"size:20;not null;default:manual"`
	Password    string  `gorm:"size:255;not null;default:''"`
	Email       string  `gorm:"size:320;not null;index"`
	FirstName   string  `gorm:"column:firstname;size:100;not null;default:''"`
	LastName    string  `gorm:"column:lastname;size:100;not null;default:''"`
	IDNumber    string  `gorm:"column:idnumber;size:255;not null;default:''"`
	Description *string `gorm:"type:text"`
	Suspended   bool    `gorm:"not null;default:false"`
	Deleted     bool    `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string {
	return "users"
}

type ProfileField struct {
	ID          int64  `gorm:"primaryKey"`
	ShortName   string `gorm:"column:shortname;size:100;not null;uniqueIndex"`
	Name        string `gorm:"size:255;not null"`
	DataType    string `gorm:"column:datatype;size:32;not null;default:text"`
	ForceUnique bool   `gorm:"column:forceunique;not null;default:false"`
}

func (ProfileField) TableName() string {
	return "user_profile_fields"
}

type ProfileData struct {
	ID      int64  `gorm:"primaryKey"`
	FieldID int64  `gorm:"not null;uniqueIndex:idx_profile_data_field_user"`
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_profile_data_field_user"`
	Value   string `gorm:"type:text;not null"`
}

func (ProfileData) TableName() string {
	return "user_profile_data"
}
