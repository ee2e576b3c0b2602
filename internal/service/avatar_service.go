package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/audit"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/avatar"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/cache"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/metrics"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/repository"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/upload"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/log"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/pubsub"
)

const (
	EventTypeRealmUser = "realm_user"
	EventOpUpdate      = "update"
)

// avatarServiceImpl implements AvatarService interface.
type avatarServiceImpl struct {
	repo      repository.UserRepository
	uploader  AvatarUploader
	resolver  *avatar.Resolver
	cache     cache.AvatarCache
	publisher pubsub.Publisher
	cacheTTL  time.Duration
}

// NewAvatarService creates a new avatar service.
func NewAvatarService(
	repo repository.UserRepository,
	uploader AvatarUploader,
	resolver *avatar.Resolver,
	urlCache cache.AvatarCache,
	publisher pubsub.Publisher,
	cacheTTL time.Duration,
) AvatarService {
	if urlCache == nil {
		urlCache = cache.NopCache{}
	}
	if publisher == nil {
		publisher = pubsub.NopPublisher{}
	}
	return &avatarServiceImpl{
		repo:      repo,
		uploader:  uploader,
		resolver:  resolver,
		cache:     urlCache,
		publisher: publisher,
		cacheTTL:  cacheTTL,
	}
}

// UpdateUserAvatar authorizes, validates, uploads and then records the change.
// The user row is only touched after the image is stored.
func (s *avatarServiceImpl) UpdateUserAvatar(ctx context.Context, actor *domain.Principal, targetUserID int64, files []*multipart.FileHeader) (*domain.AvatarURLResponse, error) {
	l := log.Ctx(ctx)

	if !actor.IsRealmAdmin() {
		metrics.ObserveOperation(metrics.OpUpdate, metrics.ResultForbidden)
		if actor != nil {
			audit.Log(ctx, audit.ActionChangeAvatarDenied, actor.UserID, targetUserID, "avatar change denied: not an administrator")
		}
		return nil, ErrNotAdministrator
	}

	if len(files) != 1 {
		metrics.ObserveOperation(metrics.OpUpdate, metrics.ResultBadRequest)
		return nil, ErrExactlyOneAvatar
	}

	target, err := s.findTarget(ctx, actor, targetUserID)
	if err != nil {
		metrics.ObserveOperation(metrics.OpUpdate, resultFor(err))
		return nil, err
	}

	start := time.Now()
	if err := s.uploader.UploadAvatarImage(ctx, files[0], target); err != nil {
		metrics.ObserveOperation(metrics.OpUpdate, resultFor(err))
		l.Warn().Err(err).Int64(log.FieldTargetUserID, target.ID).Msg("avatar upload rejected")
		return nil, err
	}
	metrics.ObserveUpload(start)

	updated, err := s.changeSource(ctx, actor, target, domain.AvatarFromUser)
	if err != nil {
		metrics.ObserveOperation(metrics.OpUpdate, resultFor(err))
		return nil, err
	}

	avatarURL := s.resolver.URL(updated, false)
	s.afterChange(ctx, updated, avatarURL)

	audit.LogWithDetail(ctx, audit.ActionChangeAvatar, actor.UserID, updated.ID,
		"version="+strconv.Itoa(updated.AvatarVersion), "avatar changed")
	metrics.ObserveOperation(metrics.OpUpdate, metrics.ResultSuccess)

	return &domain.AvatarURLResponse{AvatarURL: avatarURL}, nil
}

// ResetUserAvatar points target back at gravatar and removes stored images.
func (s *avatarServiceImpl) ResetUserAvatar(ctx context.Context, actor *domain.Principal, targetUserID int64) (*domain.AvatarURLResponse, error) {
	l := log.Ctx(ctx)

	if !actor.IsRealmAdmin() {
		metrics.ObserveOperation(metrics.OpReset, metrics.ResultForbidden)
		return nil, ErrNotAdministrator
	}

	target, err := s.findTarget(ctx, actor, targetUserID)
	if err != nil {
		metrics.ObserveOperation(metrics.OpReset, resultFor(err))
		return nil, err
	}

	updated, err := s.changeSource(ctx, actor, target, domain.AvatarFromGravatar)
	if err != nil {
		metrics.ObserveOperation(metrics.OpReset, resultFor(err))
		return nil, err
	}

	if target.AvatarSource == domain.AvatarFromUser {
		if err := s.uploader.DeleteAvatarImages(ctx, target); err != nil {
			l.Warn().Err(err).Int64(log.FieldTargetUserID, target.ID).Msg("failed to delete old avatar images")
		}
	}

	avatarURL := s.resolver.URL(updated, false)
	s.afterChange(ctx, updated, avatarURL)

	audit.Log(ctx, audit.ActionResetAvatar, actor.UserID, updated.ID, "avatar reset to gravatar")
	metrics.ObserveOperation(metrics.OpReset, metrics.ResultSuccess)

	return &domain.AvatarURLResponse{AvatarURL: avatarURL}, nil
}

// GetAvatarURL returns the cached URL when present, otherwise resolves and caches it.
func (s *avatarServiceImpl) GetAvatarURL(ctx context.Context, actor *domain.Principal, targetUserID int64, medium bool) (string, error) {
	l := log.Ctx(ctx)

	if actor == nil {
		return "", ErrNoSuchUser
	}

	key := s.cache.BuildKey(actor.RealmID, targetUserID, medium)
	if key != "" {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			metrics.CacheHits.Inc()
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Msg("avatar cache get failed")
		}
		metrics.CacheMisses.Inc()
	}

	target, err := s.findTarget(ctx, actor, targetUserID)
	if err != nil {
		metrics.ObserveOperation(metrics.OpGet, resultFor(err))
		return "", err
	}

	avatarURL := s.resolver.URL(target, medium)
	if key != "" {
		if err := s.cache.Set(ctx, key, avatarURL, s.cacheTTL); err != nil {
			l.Warn().Err(err).Msg("avatar cache set failed")
		}
	}
	metrics.ObserveOperation(metrics.OpGet, metrics.ResultSuccess)

	return avatarURL, nil
}

// findTarget resolves a user inside the actor's realm. Absent and
// cross-realm users are reported identically.
func (s *avatarServiceImpl) findTarget(ctx context.Context, actor *domain.Principal, targetUserID int64) (*domain.User, error) {
	target, err := s.repo.FindUserInTenant(ctx, targetUserID, actor.RealmID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNoSuchUser
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldTargetUserID, targetUserID).Msg("failed to look up target user")
		return nil, err
	}
	return target, nil
}

func (s *avatarServiceImpl) changeSource(ctx context.Context, actor *domain.Principal, target *domain.User, source domain.AvatarSource) (*domain.User, error) {
	actingUserID := actor.UserID
	updated, err := s.repo.ChangeAvatarFields(ctx, target, source, &actingUserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNoSuchUser
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldTargetUserID, target.ID).Msg("failed to change avatar fields")
		return nil, err
	}
	return updated, nil
}

// afterChange runs the post-commit steps. Failures are logged only.
func (s *avatarServiceImpl) afterChange(ctx context.Context, user *domain.User, avatarURL string) {
	l := log.Ctx(ctx)

	keys := []string{
		s.cache.BuildKey(user.RealmID, user.ID, false),
		s.cache.BuildKey(user.RealmID, user.ID, true),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		l.Warn().Err(err).Int64(log.FieldTargetUserID, user.ID).Msg("failed to invalidate avatar cache")
	}

	event, err := pubsub.NewEvent(EventTypeRealmUser, EventOpUpdate, user.RealmID, domain.AvatarChangedPayload{
		UserID:        user.ID,
		AvatarURL:     avatarURL,
		AvatarSource:  user.AvatarSource,
		AvatarVersion: user.AvatarVersion,
	})
	if err != nil {
		l.Warn().Err(err).Msg("failed to build avatar event")
		return
	}
	if err := s.publisher.Publish(ctx, pubsub.RealmEventsChannel(user.RealmID), event); err != nil {
		l.Warn().Err(err).Int64(log.FieldTargetUserID, user.ID).Msg("failed to publish avatar event")
	}
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrNoSuchUser):
		return metrics.ResultNotFound
	case errors.Is(err, upload.ErrImageTooLarge):
		return metrics.ResultTooLarge
	case errors.Is(err, upload.ErrInvalidImage):
		return metrics.ResultBadRequest
	default:
		return metrics.ResultError
	}
}
