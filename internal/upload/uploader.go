// Package upload validates, resizes and stores avatar images.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/avatar"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/avatar-service/pkg/log"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/storage"
)

const (
	DefaultMaxSizeMiB = 5
	DefaultAvatarSize = 100
	DefaultMediumSize = 500
	contentTypePNG    = "image/png"
	bytesPerMiB       = 1 << 20
)

// Config holds image limits and output sizes.
type Config struct {
	MaxSizeMiB int `mapstructure:"max_file_upload_size_mib"`
	Size       int `mapstructure:"size"`
	MediumSize int `mapstructure:"medium_size"`
}

type variant struct {
	name string
	key  string
	size int
}

// ImageUploader decodes an uploaded image, renders the default and medium
// square variants, and writes them under the target user's avatar path.
type ImageUploader struct {
	store      storage.Storage
	resolver   *avatar.Resolver
	maxSizeMiB int
	size       int
	mediumSize int
}

// NewImageUploader creates an ImageUploader, applying defaults for zero fields.
func NewImageUploader(store storage.Storage, resolver *avatar.Resolver, cfg Config) *ImageUploader {
	u := &ImageUploader{
		store:      store,
		resolver:   resolver,
		maxSizeMiB: cfg.MaxSizeMiB,
		size:       cfg.Size,
		mediumSize: cfg.MediumSize,
	}
	if u.maxSizeMiB <= 0 {
		u.maxSizeMiB = DefaultMaxSizeMiB
	}
	if u.size <= 0 {
		u.size = DefaultAvatarSize
	}
	if u.mediumSize <= 0 {
		u.mediumSize = DefaultMediumSize
	}
	return u
}

// MaxSizeMiB is the configured upload limit in MiB.
func (u *ImageUploader) MaxSizeMiB() int {
	return u.maxSizeMiB
}

// MaxBytes is the largest accepted upload.
func (u *ImageUploader) MaxBytes() int64 {
	return int64(u.maxSizeMiB) * bytesPerMiB
}

// UploadAvatarImage stores the uploaded file as target's avatar.
func (u *ImageUploader) UploadAvatarImage(ctx context.Context, fh *multipart.FileHeader, target *domain.User) error {
	if fh.Size > u.MaxBytes() {
		return NewTooLargeError(u.maxSizeMiB)
	}
	f, err := fh.Open()
	if err != nil {
		return invalidImage(err)
	}
	defer f.Close()
	return u.UploadAvatarReader(ctx, f, target)
}

// UploadAvatarReader is UploadAvatarImage for an already opened image stream.
func (u *ImageUploader) UploadAvatarReader(ctx context.Context, r io.Reader, target *domain.User) error {
	l := pkglog.Ctx(ctx)

	raw, err := io.ReadAll(io.LimitReader(r, u.MaxBytes()+1))
	if err != nil {
		return invalidImage(err)
	}
	if int64(len(raw)) > u.MaxBytes() {
		return NewTooLargeError(u.maxSizeMiB)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return invalidImage(err)
	}

	variants := []variant{
		{name: "default", key: u.resolver.ImageKey(target), size: u.size},
		{name: "medium", key: u.resolver.MediumImageKey(target), size: u.mediumSize},
	}

	encoded := make([][]byte, len(variants))
	g := new(errgroup.Group)
	for i, v := range variants {
		g.Go(func() error {
			// Square crop centred on the image.
			resized := imaging.Fill(img, v.size, v.size, imaging.Center, imaging.Lanczos)
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
				return fmt.Errorf("encode %s: %w", v.name, err)
			}
			encoded[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return invalidImage(err)
	}

	wg, wctx := errgroup.WithContext(ctx)
	for i, v := range variants {
		data := encoded[i]
		wg.Go(func() error {
			if err := u.store.Write(wctx, v.key, bytes.NewReader(data), int64(len(data)), contentTypePNG); err != nil {
				return fmt.Errorf("write %s: %w", v.name, err)
			}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		l.Error().Err(err).Int64(pkglog.FieldTargetUserID, target.ID).Msg("failed to store avatar")
		return storageFailure(err)
	}

	l.Info().
		Int64(pkglog.FieldTargetUserID, target.ID).
		Str("key", variants[0].key).
		Msg("stored avatar images")
	return nil
}

// DeleteAvatarImages removes target's uploaded avatar images, if any.
func (u *ImageUploader) DeleteAvatarImages(ctx context.Context, target *domain.User) error {
	for _, key := range []string{u.resolver.ImageKey(target), u.resolver.MediumImageKey(target)} {
		if err := u.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
