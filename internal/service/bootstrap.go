package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/repository"
)

// Bootstrap ensures a realm and its administrator exist. It is idempotent
// and intended for local development.
func Bootstrap(ctx context.Context, repo repository.UserRepository, realmStringID, adminEmail string) (*domain.Realm, error) {
	realm, err := repo.GetRealmByStringID(ctx, realmStringID)
	if errors.Is(err, repository.ErrRealmNotFound) {
		realm = &domain.Realm{StringID: realmStringID, Name: realmStringID}
		err = repo.CreateRealm(ctx, realm)
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap realm: %w", err)
	}

	if adminEmail == "" {
		return realm, nil
	}

	admin := &domain.User{
		RealmID:  realm.ID,
		Email:    adminEmail,
		FullName: adminEmail,
		Role:     domain.RoleRealmOwner,
		IsActive: true,
	}
	if err := repo.Create(ctx, admin); err != nil && !errors.Is(err, repository.ErrEmailExists) {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	return realm, nil
}
