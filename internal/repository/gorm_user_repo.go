package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// CreateRealm creates a new realm.
func (r *GormUserRepository) CreateRealm(ctx context.Context, realm *domain.Realm) error {
	model := &domain.RealmModel{StringID: realm.StringID, Name: realm.Name}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrRealmExists
		}
		return err
	}
	realm.ID = model.ID
	return nil
}

// GetRealmByStringID retrieves a realm by its string ID.
func (r *GormUserRepository) GetRealmByStringID(ctx context.Context, stringID string) (*domain.Realm, error) {
	var model domain.RealmModel
	result := r.db.WithContext(ctx).First(&model, "string_id = ?", stringID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRealmNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Create creates a new user.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Role == 0 {
		user.Role = domain.RoleMember
	}

	model := domain.UserToModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}

	user.ID = model.ID
	user.AvatarSource = domain.AvatarSource(model.AvatarSource)
	user.AvatarVersion = model.AvatarVersion
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID regardless of realm.
func (r *GormUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// FindUserInTenant retrieves a user by ID scoped to a realm.
func (r *GormUserRepository) FindUserInTenant(ctx context.Context, id, realmID int64) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ? AND realm_id = ?", id, realmID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ChangeAvatarFields updates avatar metadata and writes the audit row atomically.
func (r *GormUserRepository) ChangeAvatarFields(ctx context.Context, user *domain.User, source domain.AvatarSource, actingUserID *int64) (*domain.User, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("invalid avatar source %q", source)
	}

	var updated domain.UserModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before domain.UserModel
		if err := tx.First(&before, "id = ? AND realm_id = ?", user.ID, user.RealmID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// Increment in SQL so concurrent changes never lose a version.
		result := tx.Model(&domain.UserModel{}).
			Where("id = ? AND realm_id = ?", user.ID, user.RealmID).
			Updates(map[string]interface{}{
				"avatar_source":  string(source),
				"avatar_version": gorm.Expr("avatar_version + ?", 1),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		if err := tx.First(&updated, "id = ?", user.ID).Error; err != nil {
			return err
		}

		extra, err := json.Marshal(domain.AvatarChangeExtra{
			OldSource:  domain.AvatarSource(before.AvatarSource),
			NewSource:  source,
			NewVersion: updated.AvatarVersion,
		})
		if err != nil {
			return err
		}

		return tx.Create(&domain.RealmAuditLogModel{
			RealmID:        updated.RealmID,
			ActingUserID:   actingUserID,
			ModifiedUserID: updated.ID,
			EventType:      domain.AuditEventAvatarSourceChanged,
			ExtraData:      string(extra),
			EventTime:      time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return updated.ToDomain(), nil
}

// isUniqueViolation detects unique constraint errors across drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || // PostgreSQL
		strings.Contains(errStr, "UNIQUE constraint") || // SQLite
		strings.Contains(errStr, "Duplicate entry") // MySQL
}
