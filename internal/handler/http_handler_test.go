package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/avatar"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/cache"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/repository"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/service"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/upload"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/database"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/jwt"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/response"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/storage"
)

type testServer struct {
	router *gin.Engine
	repo   *repository.GormUserRepository
	tokens *jwt.Manager

	iago, hamlet, king *domain.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", MaxOpenConns: 1, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db, &domain.RealmModel{}, &domain.UserModel{}, &domain.RealmAuditLogModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := repository.NewGormUserRepository(db)

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	resolver := avatar.NewResolver(avatar.Config{Salt: "salt"})
	uploader := upload.NewImageUploader(store, resolver, upload.Config{MaxSizeMiB: 1})
	svc := service.NewAvatarService(repo, uploader, resolver, cache.NewMemoryAvatarCache(32, time.Minute, "test"), pubsub.NopPublisher{}, time.Minute)

	tokens, err := jwt.NewManager("test-secret", time.Hour, "avatar-test")
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	r := gin.New()
	NewHandler(svc, middleware.NewAuthMiddleware(tokens, service.NewPrincipalLoader(repo)), uploader.MaxSizeMiB()).RegisterRoutes(r)

	s := &testServer{router: r, repo: repo, tokens: tokens}

	zulip := &domain.Realm{StringID: "zulip", Name: "Zulip"}
	lear := &domain.Realm{StringID: "lear", Name: "Lear"}
	for _, realm := range []*domain.Realm{zulip, lear} {
		if err := repo.CreateRealm(ctx, realm); err != nil {
			t.Fatalf("realm: %v", err)
		}
	}
	mk := func(realmID int64, email string, role domain.Role) *domain.User {
		u := &domain.User{RealmID: realmID, Email: email, FullName: email, Role: role, IsActive: true}
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("user: %v", err)
		}
		return u
	}
	s.iago = mk(zulip.ID, "iago@zulip.com", domain.RoleRealmAdmin)
	s.hamlet = mk(zulip.ID, "hamlet@zulip.com", domain.RoleMember)
	s.king = mk(lear.ID, "king@lear.org", domain.RoleRealmAdmin)
	return s
}

func (s *testServer) token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, _, err := s.tokens.GenerateAccessToken(u.ID, u.RealmID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x * 10), B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

type part struct {
	field string
	data  []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i, p := range parts {
		fw, err := w.CreateFormFile(p.field, "avatar"+strconv.Itoa(i)+".png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		fw.Write(p.data)
	}
	w.Close()
	return &body, w.FormDataContentType()
}

func (s *testServer) do(t *testing.T, method, path, token string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if parts != nil {
		body, contentType := multipartBody(t, parts...)
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (response.Response, map[string]interface{}) {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	data, _ := resp.Data.(map[string]interface{})
	return resp, data
}

func avatarPath(prefix string, id int64) string {
	return prefix + "/users/" + strconv.FormatInt(id, 10) + "/avatar"
}

func TestUpdateUserAvatar_Success(t *testing.T) {
	s := newTestServer(t)

	for i, prefix := range []string{"/api/v1", "/json"} {
		w := s.do(t, http.MethodPatch, avatarPath(prefix, s.hamlet.ID), s.token(t, s.iago), part{"file", pngImage(t)})
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", prefix, w.Code, w.Body.String())
		}
		resp, data := decode(t, w)
		if !resp.Success {
			t.Errorf("%s: expected success envelope", prefix)
		}
		url, _ := data["avatar_url"].(string)
		wantVersion := "?version=" + strconv.Itoa(2+i)
		if !strings.HasSuffix(url, wantVersion) {
			t.Errorf("%s: unexpected avatar_url %q", prefix, url)
		}
	}

	got, _ := s.repo.GetByID(context.Background(), s.hamlet.ID)
	if got.AvatarSource != domain.AvatarFromUser || got.AvatarVersion != 3 {
		t.Errorf("unexpected stored state %s/%d", got.AvatarSource, got.AvatarVersion)
	}
}

func TestUpdateUserAvatar_Errors(t *testing.T) {
	s := newTestServer(t)
	img := pngImage(t)

	tests := []struct {
		name    string
		token   string
		target  int64
		parts   []part
		status  int
		message string
	}{
		{"non admin", s.token(t, s.hamlet), s.iago.ID, []part{{"file", img}}, http.StatusForbidden, "Must be an administrator"},
		{"no such user", s.token(t, s.iago), 999999, []part{{"file", img}}, http.StatusNotFound, "No such user"},
		{"cross realm", s.token(t, s.iago), s.king.ID, []part{{"file", img}}, http.StatusNotFound, "No such user"},
		{"two files", s.token(t, s.iago), s.hamlet.ID, []part{{"a", img}, {"b", img}}, http.StatusBadRequest, "You must upload exactly one avatar."},
		{"zero files", s.token(t, s.iago), s.hamlet.ID, nil, http.StatusBadRequest, "You must upload exactly one avatar."},
		{"not an image", s.token(t, s.iago), s.hamlet.ID, []part{{"file", []byte("plain text")}}, http.StatusBadRequest, "Could not decode image; did you upload an image file?"},
		{"too large", s.token(t, s.iago), s.hamlet.ID, []part{{"file", bytes.Repeat([]byte{1}, 3<<19)}}, http.StatusRequestEntityTooLarge, "Uploaded file is larger than the allowed limit of 1 MiB"},
		{"body over cap", s.token(t, s.iago), s.hamlet.ID, []part{{"file", bytes.Repeat([]byte{1}, 3<<20)}}, http.StatusRequestEntityTooLarge, "Uploaded file is larger than the allowed limit of 1 MiB"},
		{"two files over cap", s.token(t, s.iago), s.hamlet.ID, []part{{"file", img}, {"file2", bytes.Repeat([]byte{1}, 3<<20)}}, http.StatusBadRequest, "You must upload exactly one avatar."},
		{"oversized file then second file", s.token(t, s.iago), s.hamlet.ID, []part{{"file", bytes.Repeat([]byte{1}, 3<<19)}, {"file", img}}, http.StatusBadRequest, "You must upload exactly one avatar."},
		{"two files missing user", s.token(t, s.iago), 999999, []part{{"a", img}, {"b", bytes.Repeat([]byte{1}, 3<<20)}}, http.StatusBadRequest, "You must upload exactly one avatar."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPatch, avatarPath("/api/v1", tt.target), tt.token, tt.parts...)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			resp, _ := decode(t, w)
			if resp.Success || resp.Error == nil || resp.Error.Message != tt.message {
				t.Errorf("unexpected body %s", w.Body.String())
			}
		})
	}

	got, _ := s.repo.GetByID(context.Background(), s.hamlet.ID)
	if got.AvatarVersion != s.hamlet.AvatarVersion || got.AvatarSource != domain.AvatarFromGravatar {
		t.Errorf("failed requests must not change the target: %s/%d", got.AvatarSource, got.AvatarVersion)
	}
}

func TestUpdateUserAvatar_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPatch, avatarPath("/api/v1", s.hamlet.ID), "", part{"file", pngImage(t)})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = s.do(t, http.MethodPatch, avatarPath("/api/v1", s.hamlet.ID), "not-a-token", part{"file", pngImage(t)})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
	resp, _ := decode(t, w)
	if resp.Success || resp.Error == nil || resp.Error.Code != response.CodeUnauthorized {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestUpdateUserAvatar_InvalidUserID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPatch, "/api/v1/users/abc/avatar", s.token(t, s.iago), part{"file", pngImage(t)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetAvatar_Redirects(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, avatarPath("/api/v1", s.iago.ID)+"?medium=true", s.token(t, s.hamlet))
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, avatar.DefaultGravatarBase) || !strings.Contains(loc, "s=500") {
		t.Errorf("unexpected location %q", loc)
	}

	w = s.do(t, http.MethodGet, avatarPath("/api/v1", s.king.ID), s.token(t, s.hamlet))
	if w.Code != http.StatusNotFound {
		t.Errorf("cross realm: expected 404, got %d", w.Code)
	}
}

func TestResetUserAvatar(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodPatch, avatarPath("/api/v1", s.hamlet.ID), s.token(t, s.iago), part{"file", pngImage(t)}); w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodDelete, avatarPath("/api/v1", s.hamlet.ID), s.token(t, s.hamlet))
	if w.Code != http.StatusForbidden {
		t.Fatalf("member reset: expected 403, got %d", w.Code)
	}

	w = s.do(t, http.MethodDelete, avatarPath("/api/v1", s.hamlet.ID), s.token(t, s.iago))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	_, data := decode(t, w)
	if url, _ := data["avatar_url"].(string); !strings.HasPrefix(url, avatar.DefaultGravatarBase) {
		t.Errorf("expected gravatar url, got %q", url)
	}

	got, _ := s.repo.GetByID(context.Background(), s.hamlet.ID)
	if got.AvatarSource != domain.AvatarFromGravatar || got.AvatarVersion != 3 {
		t.Errorf("unexpected state %s/%d", got.AvatarSource, got.AvatarVersion)
	}
}
