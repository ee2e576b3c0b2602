package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	m, err := NewManager("secret", time.Hour, "avatar-test")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, exp, err := m.GenerateAccessToken(42, 7)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if exp <= time.Now().Unix() {
		t.Errorf("expected expiry in the future, got %d", exp)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.RealmID != 7 {
		t.Errorf("unexpected claims: user=%d realm=%d", claims.UserID, claims.RealmID)
	}
	if claims.Subject != "42" {
		t.Errorf("expected subject 42, got %q", claims.Subject)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	m, _ := NewManager("secret", time.Hour, "avatar-test")
	other, _ := NewManager("other-secret", time.Hour, "avatar-test")
	foreign, _ := NewManager("secret", time.Hour, "someone-else")

	otherToken, _, _ := other.GenerateAccessToken(1, 1)
	foreignToken, _, _ := foreign.GenerateAccessToken(1, 1)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", otherToken},
		{"wrong issuer", foreignToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	m, _ := NewManager("secret", time.Minute, "avatar-test")
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }

	token, _, err := m.GenerateAccessToken(1, 1)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	m.now = time.Now
	if _, err := m.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestNewManager_EmptySecret(t *testing.T) {
	if _, err := NewManager("", time.Hour, "x"); err == nil {
		t.Error("expected error for empty secret")
	}
}
