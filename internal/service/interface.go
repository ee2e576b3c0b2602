package service

import (
	"context"
	"mime/multipart"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
)

// AvatarService defines avatar administration and lookup.
type AvatarService interface {
	// UpdateUserAvatar replaces target's avatar with the single uploaded file.
	// Only realm administrators may call it, including for their own avatar.
	UpdateUserAvatar(ctx context.Context, actor *domain.Principal, targetUserID int64, files []*multipart.FileHeader) (*domain.AvatarURLResponse, error)
	// ResetUserAvatar switches target back to the gravatar source.
	ResetUserAvatar(ctx context.Context, actor *domain.Principal, targetUserID int64) (*domain.AvatarURLResponse, error)
	// GetAvatarURL resolves the current avatar URL of a user in the actor's realm.
	GetAvatarURL(ctx context.Context, actor *domain.Principal, targetUserID int64, medium bool) (string, error)
}

// AvatarUploader validates and persists avatar images for a user.
type AvatarUploader interface {
	UploadAvatarImage(ctx context.Context, fh *multipart.FileHeader, target *domain.User) error
	DeleteAvatarImages(ctx context.Context, target *domain.User) error
}
