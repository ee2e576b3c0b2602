package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrRealmNotFound = errors.New("realm not found")
	ErrEmailExists   = errors.New("email already exists in realm")
	ErrRealmExists   = errors.New("realm already exists")
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	CreateRealm(ctx context.Context, realm *domain.Realm) error
	GetRealmByStringID(ctx context.Context, stringID string) (*domain.Realm, error)
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// FindUserInTenant returns the user only if it belongs to realmID.
	// Absent and cross-realm users both yield ErrUserNotFound.
	FindUserInTenant(ctx context.Context, id, realmID int64) (*domain.User, error)
	// ChangeAvatarFields sets the avatar source, bumps avatar_version by one in
	// a single statement and records an audit row, all in one transaction.
	// It returns the user as stored after the change.
	ChangeAvatarFields(ctx context.Context, user *domain.User, source domain.AvatarSource, actingUserID *int64) (*domain.User, error)
}
