package service

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/repository"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/middleware"
)

// principalLoader resolves token subjects against the user table.
type principalLoader struct {
	repo repository.UserRepository
}

// NewPrincipalLoader creates a middleware.PrincipalLoader backed by repo.
func NewPrincipalLoader(repo repository.UserRepository) middleware.PrincipalLoader {
	return &principalLoader{repo: repo}
}

// LoadPrincipal returns middleware.ErrPrincipalNotFound for users that are
// missing, deactivated or no longer in the token's realm.
func (p *principalLoader) LoadPrincipal(ctx context.Context, userID, realmID int64) (*middleware.Principal, error) {
	user, err := p.repo.FindUserInTenant(ctx, userID, realmID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, middleware.ErrPrincipalNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, middleware.ErrPrincipalNotFound
	}
	return &middleware.Principal{
		UserID:  user.ID,
		RealmID: user.RealmID,
		Role:    int(user.Role),
		IsAdmin: user.Role.IsRealmAdmin(),
	}, nil
}
