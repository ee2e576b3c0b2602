package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/avatar-service/pkg/jwt"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/log"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/response"
)

const (
	// Read back by pkg/log's request logger.
	UserIDKey     = log.FieldUserID
	RealmIDKey    = log.FieldRealmID
	PrincipalKey  = "principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// ErrPrincipalNotFound is returned by a PrincipalLoader when the token
// subject no longer maps to an active user.
var ErrPrincipalNotFound = errors.New("principal not found")

// MsgMustBeAdministrator is the error message for callers lacking admin rights.
const MsgMustBeAdministrator = "Must be an administrator"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  int64
	RealmID int64
	Role    int
	IsAdmin bool
}

// PrincipalLoader resolves a validated token subject to a live principal,
// so role changes and deactivations apply without reissuing tokens.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID, realmID int64) (*Principal, error)
}

// AuthMiddleware validates bearer tokens and loads the acting principal.
type AuthMiddleware struct {
	tokens *jwt.Manager
	loader PrincipalLoader
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens *jwt.Manager, loader PrincipalLoader) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		loader: loader,
	}
}

// RequireAuth returns a Gin middleware that validates JWT tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			return
		}

		claims, err := m.tokens.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			response.Unauthorized(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		principal, err := m.loader.LoadPrincipal(ctx, claims.UserID, claims.RealmID)
		if err != nil {
			if errors.Is(err, ErrPrincipalNotFound) {
				response.Unauthorized(c, "account is deactivated or does not exist")
				return
			}
			l := log.Ctx(ctx)
			l.Error().Err(err).Int64(log.FieldUserID, claims.UserID).Msg("failed to load principal")
			response.InternalError(c, "failed to authenticate")
			return
		}

		c.Set(UserIDKey, principal.UserID)
		c.Set(RealmIDKey, principal.RealmID)
		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(log.WithActor(ctx, principal.UserID, principal.RealmID))

		c.Next()
	}
}

// RequireRealmAdmin rejects principals without administrator capability.
// It must run after RequireAuth.
func RequireRealmAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			response.Unauthorized(c, "unauthorized")
			return
		}
		if !p.IsAdmin {
			response.Forbidden(c, MsgMustBeAdministrator)
			return
		}
		c.Next()
	}
}

// GetPrincipal extracts the authenticated principal from Gin context.
func GetPrincipal(c *gin.Context) *Principal {
	if p, exists := c.Get(PrincipalKey); exists {
		if principal, ok := p.(*Principal); ok {
			return principal
		}
	}
	return nil
}
