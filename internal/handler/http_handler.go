package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/service"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/upload"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/log"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/response"
)

// Multipart framing overhead allowed on top of the image size limit.
const formOverheadBytes = 1 << 20

// Handler handles HTTP requests for the avatar service.
type Handler struct {
	avatarService  service.AvatarService
	authMiddleware *middleware.AuthMiddleware
	maxUploadMiB   int
}

// NewHandler creates a new HTTP handler.
func NewHandler(avatarService service.AvatarService, authMiddleware *middleware.AuthMiddleware, maxUploadMiB int) *Handler {
	return &Handler{
		avatarService:  avatarService,
		authMiddleware: authMiddleware,
		maxUploadMiB:   maxUploadMiB,
	}
}

// RegisterRoutes registers all routes under both the REST and legacy JSON prefixes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	for _, prefix := range []string{"/api/v1", "/json"} {
		users := r.Group(prefix + "/users")
		users.Use(h.authMiddleware.RequireAuth())
		{
			users.GET("/:user_id/avatar", h.GetAvatar)

			admin := users.Group("", middleware.RequireRealmAdmin())
			admin.PATCH("/:user_id/avatar", h.UpdateUserAvatar)
			admin.DELETE("/:user_id/avatar", h.ResetUserAvatar)
		}
	}
}

// UpdateUserAvatar handles an administrator replacing another user's avatar.
func (h *Handler) UpdateUserAvatar(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	targetID, ok := parseUserID(c)
	if !ok {
		return
	}

	files, cleanup, err := h.readAvatarFiles(c)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, service.ErrExactlyOneAvatar):
			h.writeError(c, err)
		case errors.As(err, &tooBig):
			h.writeError(c, upload.NewTooLargeError(h.maxUploadMiB))
		default:
			l.Warn().Err(err).Msg("invalid multipart request")
			response.BadRequest(c, "invalid multipart form")
		}
		return
	}
	defer cleanup()

	result, err := h.avatarService.UpdateUserAvatar(ctx, actor(c), targetID, files)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ResetUserAvatar handles an administrator resetting a user to gravatar.
func (h *Handler) ResetUserAvatar(c *gin.Context) {
	targetID, ok := parseUserID(c)
	if !ok {
		return
	}

	result, err := h.avatarService.ResetUserAvatar(c.Request.Context(), actor(c), targetID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

// GetAvatar redirects to the current avatar image of a user in the caller's realm.
func (h *Handler) GetAvatar(c *gin.Context) {
	targetID, ok := parseUserID(c)
	if !ok {
		return
	}
	medium, _ := strconv.ParseBool(c.Query("medium"))

	avatarURL, err := h.avatarService.GetAvatarURL(c.Request.Context(), actor(c), targetID, medium)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=30")
	c.Redirect(http.StatusFound, avatarURL)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	l := log.Ctx(c.Request.Context())

	var uploadErr *service.UploadError
	switch {
	case errors.Is(err, service.ErrNotAdministrator):
		response.Forbidden(c, service.MsgNotAdministrator)
	case errors.Is(err, service.ErrExactlyOneAvatar):
		response.BadRequest(c, service.MsgExactlyOneAvatar)
	case errors.Is(err, service.ErrNoSuchUser):
		response.NotFound(c, service.MsgNoSuchUser)
	case errors.As(err, &uploadErr):
		switch {
		case errors.Is(uploadErr, upload.ErrImageTooLarge):
			response.PayloadTooLarge(c, uploadErr.Message)
		case errors.Is(uploadErr, upload.ErrInvalidImage):
			response.BadRequest(c, uploadErr.Message)
		default:
			l.Error().Err(err).Msg("avatar upload failed")
			response.InternalError(c, uploadErr.Message)
		}
	default:
		l.Error().Err(err).Msg("avatar request failed")
		response.InternalError(c, "internal server error")
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid user id")
		return 0, false
	}
	return id, true
}

// readAvatarFiles streams the request form and returns its file parts.
// A second file part ends the read with ErrExactlyOneAvatar before its
// content is consumed, so the file count is settled ahead of the body cap.
// File content beyond the upload limit is discarded; the kept prefix still
// reports a size over the limit. A body that is not multipart carries no files.
func (h *Handler) readAvatarFiles(c *gin.Context) ([]*multipart.FileHeader, func(), error) {
	noop := func() {}
	maxFile := int64(h.maxUploadMiB) << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFile+formOverheadBytes)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, noop, nil
		}
		return nil, noop, err
	}

	var (
		kept bytes.Buffer
		mw   = multipart.NewWriter(&kept)
		seen int
	)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, noop, err
		}
		if p.FormName() == "" || p.FileName() == "" {
			_, err = io.Copy(io.Discard, p)
			p.Close()
			if err != nil {
				return nil, noop, err
			}
			continue
		}

		seen++
		if seen > 1 {
			p.Close()
			return nil, noop, service.ErrExactlyOneAvatar
		}

		pw, err := mw.CreatePart(p.Header)
		if err != nil {
			p.Close()
			return nil, noop, err
		}
		if _, err = io.CopyN(pw, p, maxFile+1); err != nil && err != io.EOF {
			p.Close()
			return nil, noop, err
		}
		_, err = io.Copy(io.Discard, p)
		p.Close()
		if err != nil {
			return nil, noop, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, noop, err
	}
	if seen == 0 {
		return nil, noop, nil
	}

	form, err := multipart.NewReader(&kept, mw.Boundary()).ReadForm(maxFile + formOverheadBytes)
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := form.RemoveAll(); err != nil {
			l := log.Ctx(c.Request.Context())
			l.Warn().Err(err).Msg("failed to remove multipart temp files")
		}
	}

	var files []*multipart.FileHeader
	for _, fhs := range form.File {
		files = append(files, fhs...)
	}
	return files, cleanup, nil
}

func actor(c *gin.Context) *domain.Principal {
	p := middleware.GetPrincipal(c)
	if p == nil {
		return nil
	}
	return &domain.Principal{
		UserID:  p.UserID,
		RealmID: p.RealmID,
		Role:    domain.Role(p.Role),
	}
}
