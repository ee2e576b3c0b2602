package domain

import (
	"time"
)

// AuditEventAvatarSourceChanged is recorded whenever avatar fields change.
const AuditEventAvatarSourceChanged = "user_avatar_source_changed"

// RealmModel is the GORM model for the realms table.
type RealmModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	StringID  string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for RealmModel.
func (RealmModel) TableName() string {
	return "realms"
}

// ToDomain converts RealmModel to domain Realm.
func (m *RealmModel) ToDomain() *Realm {
	return &Realm{ID: m.ID, StringID: m.StringID, Name: m.Name}
}

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	RealmID       int64     `gorm:"not null;uniqueIndex:idx_users_realm_email,priority:1"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_realm_email,priority:2"`
	FullName      string    `gorm:"type:varchar(100)"`
	Role          int       `gorm:"not null;default:400"`
	IsActive      bool      `gorm:"not null"`
	AvatarSource  string    `gorm:"type:varchar(1);not null;default:G"`
	AvatarVersion int       `gorm:"not null;default:1"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:            m.ID,
		RealmID:       m.RealmID,
		Email:         m.Email,
		FullName:      m.FullName,
		Role:          Role(m.Role),
		IsActive:      m.IsActive,
		AvatarSource:  AvatarSource(m.AvatarSource),
		AvatarVersion: m.AvatarVersion,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	source := u.AvatarSource
	if source == "" {
		source = AvatarFromGravatar
	}
	version := u.AvatarVersion
	if version == 0 {
		version = 1
	}
	return &UserModel{
		ID:            u.ID,
		RealmID:       u.RealmID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          int(u.Role),
		IsActive:      u.IsActive,
		AvatarSource:  string(source),
		AvatarVersion: version,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// RealmAuditLogModel records who changed what about whom.
type RealmAuditLogModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	RealmID        int64     `gorm:"not null;index"`
	ActingUserID   *int64    `gorm:"index"`
	ModifiedUserID int64     `gorm:"not null;index"`
	EventType      string    `gorm:"type:varchar(64);not null"`
	ExtraData      string    `gorm:"type:text"`
	EventTime      time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for RealmAuditLogModel.
func (RealmAuditLogModel) TableName() string {
	return "realm_audit_log"
}

// AvatarChangeExtra is stored as JSON in RealmAuditLogModel.ExtraData.
type AvatarChangeExtra struct {
	OldSource  AvatarSource `json:"old_value"`
	NewSource  AvatarSource `json:"new_value"`
	NewVersion int          `json:"avatar_version"`
}
