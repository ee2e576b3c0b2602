package domain

import (
	"time"
)

// AvatarSource says where a user's avatar image comes from.
type AvatarSource string

const (
	AvatarFromGravatar AvatarSource = "G"
	AvatarFromUser     AvatarSource = "U"
)

// Valid reports whether s is a known avatar source.
func (s AvatarSource) Valid() bool {
	return s == AvatarFromGravatar || s == AvatarFromUser
}

// Role is a user's permission level within its realm. Lower is more privileged.
type Role int

const (
	RoleRealmOwner Role = 100
	RoleRealmAdmin Role = 200
	RoleMember     Role = 400
	RoleGuest      Role = 600
)

// IsRealmAdmin reports whether the role grants administrator capability.
func (r Role) IsRealmAdmin() bool {
	return r == RoleRealmOwner || r == RoleRealmAdmin
}

// Realm is an isolated organization; every user belongs to exactly one.
type Realm struct {
	ID       int64  `json:"id"`
	StringID string `json:"string_id"`
	Name     string `json:"name"`
}

// User represents a realm member.
type User struct {
	ID            int64        `json:"id"`
	RealmID       int64        `json:"realm_id"`
	Email         string       `json:"email"`
	FullName      string       `json:"full_name"`
	Role          Role         `json:"role"`
	IsActive      bool         `json:"is_active"`
	AvatarSource  AvatarSource `json:"avatar_source"`
	AvatarVersion int          `json:"avatar_version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Principal is the authenticated caller acting on behalf of a realm.
type Principal struct {
	UserID  int64
	RealmID int64
	Role    Role
}

// IsRealmAdmin reports whether the principal may administer its realm.
func (p *Principal) IsRealmAdmin() bool {
	return p != nil && p.Role.IsRealmAdmin()
}

// PrincipalFromUser builds the acting principal for a loaded user.
func PrincipalFromUser(u *User) *Principal {
	return &Principal{
		UserID:  u.ID,
		RealmID: u.RealmID,
		Role:    u.Role,
	}
}

// AvatarURLResponse is returned after an avatar change.
type AvatarURLResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// AvatarChangedPayload is the realm_user update event sent to connected clients.
type AvatarChangedPayload struct {
	UserID        int64        `json:"user_id"`
	AvatarURL     string       `json:"avatar_url"`
	AvatarSource  AvatarSource `json:"avatar_source"`
	AvatarVersion int          `json:"avatar_version"`
}
