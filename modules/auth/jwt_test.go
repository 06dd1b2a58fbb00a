package auth

import (
	"errors"
	"testing"
	"time"

	domain "github.com/example/videomeet/domain/user"
)

func testUser() *domain.User {
	return &domain.User{
		ID:       42,
		Username: "alice",
		Nickname: "Alice",
		UserType: domain.TypeRegistered,
		Role:     domain.RoleUser,
	}
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig())
	u := testUser()

	token, err := manager.GenerateAccessToken(u)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", claims.UserID, u.ID)
	}
	if claims.Username != u.Username {
		t.Errorf("Username = %q, want %q", claims.Username, u.Username)
	}
	if claims.TokenType != "access" {
		t.Errorf("TokenType = %q, want %q", claims.TokenType, "access")
	}
}

func TestJWTManager_TokenTypeEnforced(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig())
	u := testUser()

	refresh, err := manager.GenerateRefreshToken(u)
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := manager.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccessToken(refresh token) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("ValidateRefreshToken() error = %v", err)
	}
}

func TestJWTManager_RejectsTamperedToken(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig())

	token, err := manager.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := manager.ValidateToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken(tampered) error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager(JWTConfig{
		SecretKey:            "secret-one",
		AccessTokenDuration:  time.Hour,
		RefreshTokenDuration: time.Hour,
		Issuer:               "videomeet",
	})
	verifier := NewJWTManager(JWTConfig{
		SecretKey:            "secret-two",
		AccessTokenDuration:  time.Hour,
		RefreshTokenDuration: time.Hour,
		Issuer:               "videomeet",
	})

	token, err := issuer.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := verifier.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager(JWTConfig{
		SecretKey:            "secret",
		AccessTokenDuration:  -time.Minute,
		RefreshTokenDuration: -time.Minute,
		Issuer:               "videomeet",
	})

	token, err := manager.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateToken(expired) error = %v, want ErrExpiredToken", err)
	}
}
