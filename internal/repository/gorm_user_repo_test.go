package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     ":memory:",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
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
	return db
}

func seedUser(t *testing.T, repo *GormUserRepository, realmID int64, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{RealmID: realmID, Email: email, FullName: email, Role: role, IsActive: true}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func seedRealm(t *testing.T, repo *GormUserRepository, stringID string) *domain.Realm {
	t.Helper()
	realm := &domain.Realm{StringID: stringID, Name: stringID}
	if err := repo.CreateRealm(context.Background(), realm); err != nil {
		t.Fatalf("create realm %s: %v", stringID, err)
	}
	return realm
}

func TestCreate_Defaults(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	realm := seedRealm(t, repo, "zulip")

	u := &domain.User{RealmID: realm.ID, Email: "hamlet@zulip.com", IsActive: true}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected generated ID")
	}
	if u.Role != domain.RoleMember {
		t.Errorf("expected member role, got %d", u.Role)
	}
	if u.AvatarSource != domain.AvatarFromGravatar || u.AvatarVersion != 1 {
		t.Errorf("unexpected avatar defaults: %s/%d", u.AvatarSource, u.AvatarVersion)
	}

	dup := &domain.User{RealmID: realm.ID, Email: "hamlet@zulip.com", IsActive: true}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestCreateRealm_Duplicate(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	seedRealm(t, repo, "zulip")

	if err := repo.CreateRealm(context.Background(), &domain.Realm{StringID: "zulip", Name: "again"}); !errors.Is(err, ErrRealmExists) {
		t.Errorf("expected ErrRealmExists, got %v", err)
	}

	got, err := repo.GetRealmByStringID(context.Background(), "zulip")
	if err != nil || got.StringID != "zulip" {
		t.Fatalf("GetRealmByStringID: %v %+v", err, got)
	}
	if _, err := repo.GetRealmByStringID(context.Background(), "nope"); !errors.Is(err, ErrRealmNotFound) {
		t.Errorf("expected ErrRealmNotFound, got %v", err)
	}
}

func TestFindUserInTenant(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	zulip := seedRealm(t, repo, "zulip")
	lear := seedRealm(t, repo, "lear")
	hamlet := seedUser(t, repo, zulip.ID, "hamlet@zulip.com", domain.RoleMember)
	king := seedUser(t, repo, lear.ID, "king@lear.org", domain.RoleMember)

	ctx := context.Background()

	got, err := repo.FindUserInTenant(ctx, hamlet.ID, zulip.ID)
	if err != nil {
		t.Fatalf("FindUserInTenant: %v", err)
	}
	if got.Email != "hamlet@zulip.com" {
		t.Errorf("unexpected user %+v", got)
	}

	if _, err := repo.FindUserInTenant(ctx, king.ID, zulip.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("cross-realm lookup: expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindUserInTenant(ctx, 999999, zulip.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing lookup: expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, king.ID); err != nil {
		t.Errorf("GetByID ignores realm, got %v", err)
	}
}

func TestChangeAvatarFields_IncrementsAndAudits(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	realm := seedRealm(t, repo, "zulip")
	iago := seedUser(t, repo, realm.ID, "iago@zulip.com", domain.RoleRealmAdmin)
	hamlet := seedUser(t, repo, realm.ID, "hamlet@zulip.com", domain.RoleMember)

	updated, err := repo.ChangeAvatarFields(context.Background(), hamlet, domain.AvatarFromUser, &iago.ID)
	if err != nil {
		t.Fatalf("ChangeAvatarFields: %v", err)
	}
	if updated.AvatarVersion != hamlet.AvatarVersion+1 {
		t.Errorf("expected version %d, got %d", hamlet.AvatarVersion+1, updated.AvatarVersion)
	}
	if updated.AvatarSource != domain.AvatarFromUser {
		t.Errorf("expected source U, got %s", updated.AvatarSource)
	}

	var entries []domain.RealmAuditLogModel
	if err := db.Find(&entries, "modified_user_id = ?", hamlet.ID).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.EventType != domain.AuditEventAvatarSourceChanged || entry.ActingUserID == nil || *entry.ActingUserID != iago.ID {
		t.Errorf("unexpected audit entry %+v", entry)
	}
	var extra domain.AvatarChangeExtra
	if err := json.Unmarshal([]byte(entry.ExtraData), &extra); err != nil {
		t.Fatalf("decode extra: %v", err)
	}
	if extra.OldSource != domain.AvatarFromGravatar || extra.NewSource != domain.AvatarFromUser || extra.NewVersion != updated.AvatarVersion {
		t.Errorf("unexpected extra %+v", extra)
	}
}

func TestChangeAvatarFields_Errors(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	realm := seedRealm(t, repo, "zulip")
	other := seedRealm(t, repo, "lear")
	hamlet := seedUser(t, repo, realm.ID, "hamlet@zulip.com", domain.RoleMember)

	if _, err := repo.ChangeAvatarFields(context.Background(), hamlet, domain.AvatarSource("X"), nil); err == nil {
		t.Error("expected error for invalid source")
	}

	stray := *hamlet
	stray.RealmID = other.ID
	if _, err := repo.ChangeAvatarFields(context.Background(), &stray, domain.AvatarFromUser, nil); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for wrong realm, got %v", err)
	}

	got, _ := repo.GetByID(context.Background(), hamlet.ID)
	if got.AvatarVersion != hamlet.AvatarVersion {
		t.Errorf("failed changes must not bump the version: %d -> %d", hamlet.AvatarVersion, got.AvatarVersion)
	}
}

func TestChangeAvatarFields_Concurrent(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))
	realm := seedRealm(t, repo, "zulip")
	hamlet := seedUser(t, repo, realm.ID, "hamlet@zulip.com", domain.RoleMember)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ChangeAvatarFields(context.Background(), hamlet, domain.AvatarFromUser, nil); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent change failed: %v", err)
	}

	got, err := repo.GetByID(context.Background(), hamlet.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AvatarVersion != hamlet.AvatarVersion+n {
		t.Errorf("expected version %d, got %d", hamlet.AvatarVersion+n, got.AvatarVersion)
	}
}
