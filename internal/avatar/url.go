// Package avatar derives storage keys and public URLs from a user's avatar fields.
package avatar

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
)

const (
	DefaultPublicURL    = "/user_avatars"
	DefaultGravatarBase = "https://secure.gravatar.com/avatar"

	mediumSuffix = "-medium"
	imageExt     = ".png"
)

// Config controls where avatars are addressed.
type Config struct {
	PublicURL    string `mapstructure:"public_url"`
	GravatarBase string `mapstructure:"gravatar_base"`
	Salt         string `mapstructure:"salt"`
	MediumSize   int    `mapstructure:"medium_size"`
}

// Resolver maps users to avatar storage keys and URLs.
type Resolver struct {
	publicURL    string
	gravatarBase string
	salt         string
	mediumSize   int
}

// NewResolver creates a Resolver, applying defaults for empty fields.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		publicURL:    strings.TrimSuffix(cfg.PublicURL, "/"),
		gravatarBase: strings.TrimSuffix(cfg.GravatarBase, "/"),
		salt:         cfg.Salt,
		mediumSize:   cfg.MediumSize,
	}
	if r.publicURL == "" {
		r.publicURL = DefaultPublicURL
	}
	if r.gravatarBase == "" {
		r.gravatarBase = DefaultGravatarBase
	}
	if r.mediumSize <= 0 {
		r.mediumSize = 500
	}
	return r
}

// UserAvatarPath is the extension-less storage path of a user's uploaded avatar.
// The hash hides user IDs from anyone browsing the avatar bucket.
func (r *Resolver) UserAvatarPath(u *domain.User) string {
	sum := sha1.Sum([]byte(r.salt + strconv.FormatInt(u.ID, 10)))
	return fmt.Sprintf("%d/%s", u.RealmID, hex.EncodeToString(sum[:]))
}

// ImageKey returns the storage key of the default-size avatar image.
func (r *Resolver) ImageKey(u *domain.User) string {
	return r.UserAvatarPath(u) + imageExt
}

// MediumImageKey returns the storage key of the medium-size avatar image.
func (r *Resolver) MediumImageKey(u *domain.User) string {
	return r.UserAvatarPath(u) + mediumSuffix + imageExt
}

// URL returns the avatar URL for u. It depends only on the user's id, realm,
// email, avatar source and avatar version, so it changes whenever the version does.
func (r *Resolver) URL(u *domain.User, medium bool) string {
	if u.AvatarSource == domain.AvatarFromUser {
		key := r.ImageKey(u)
		if medium {
			key = r.MediumImageKey(u)
		}
		return fmt.Sprintf("%s/%s?version=%d", r.publicURL, key, u.AvatarVersion)
	}
	return r.gravatarURL(u, medium)
}

func (r *Resolver) gravatarURL(u *domain.User, medium bool) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(u.Email))))
	q := url.Values{}
	q.Set("d", "identicon")
	if medium {
		q.Set("s", strconv.Itoa(r.mediumSize))
	}
	q.Set("version", strconv.Itoa(u.AvatarVersion))
	return fmt.Sprintf("%s/%s?%s", r.gravatarBase, hex.EncodeToString(sum[:]), q.Encode())
}
