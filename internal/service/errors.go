package service

import (
	"errors"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/upload"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/middleware"
)

var (
	ErrNotAdministrator = errors.New("actor is not a realm administrator")
	ErrExactlyOneAvatar = errors.New("exactly one avatar file required")
	ErrNoSuchUser       = errors.New("no such user")
)

// User-facing messages for the sentinel errors above.
const (
	MsgNotAdministrator = middleware.MsgMustBeAdministrator
	MsgExactlyOneAvatar = "You must upload exactly one avatar."
	MsgNoSuchUser       = "No such user"
)

// UploadError is the error kind reported by the uploader.
type UploadError = upload.UploadError
