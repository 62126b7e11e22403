package passhash

import (
	"strings"
	"testing"
	"time"
)

func testJWTManager(t *testing.T) *JWTManager {
	t.Helper()
	return NewJWTManager(&JWTConfig{
		SecretKey:          "test-secret-key",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "test-issuer",
	})
}

func TestJWTManager_GenerateAccessToken(t *testing.T) {
	m := testJWTManager(t)

	token, err := m.GenerateAccessToken("user-123", "dispatcher", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	// Компактная сериализация JWT: header.payload.signature
	if got := len(strings.Split(token, ".")); got != 3 {
		t.Errorf("token has %d segments, want 3", got)
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	m := testJWTManager(t)

	token, err := m.GenerateAccessToken("user-123", "dispatcher", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
	if claims.Username != "dispatcher" {
		t.Errorf("Username = %q, want dispatcher", claims.Username)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("Issuer = %q, want test-issuer", claims.Issuer)
	}
}

func TestJWTManager_ValidateToken_Garbage(t *testing.T) {
	m := NewJWTManager(nil)

	if _, err := m.ValidateToken("not-a-jwt"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	m := NewJWTManager(&JWTConfig{
		SecretKey:         "test-secret",
		AccessTokenExpiry: time.Millisecond,
		Issuer:            "test",
	})

	token, err := m.GenerateAccessToken("user", "name", "role")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestJWTManager_ValidateToken_ForeignSecret(t *testing.T) {
	issuerA := NewJWTManager(&JWTConfig{SecretKey: "secret-1", AccessTokenExpiry: 15 * time.Minute})
	issuerB := NewJWTManager(&JWTConfig{SecretKey: "secret-2", AccessTokenExpiry: 15 * time.Minute})

	token, err := issuerA.GenerateAccessToken("user", "name", "role")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	// Токен подписан другим ключом
	if _, err := issuerB.ValidateToken(token); err == nil {
		t.Error("token with foreign signature accepted")
	}
}

func TestJWTManager_GenerateRefreshToken(t *testing.T) {
	m := testJWTManager(t)

	token, err := m.GenerateRefreshToken("user-123", "dispatcher", "admin")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
}

func TestJWTManager_RefreshAccessToken(t *testing.T) {
	m := testJWTManager(t)

	refreshToken, err := m.GenerateRefreshToken("user-123", "dispatcher", "admin")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	accessToken, claims, err := m.RefreshAccessToken(refreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}

	if accessToken == "" {
		t.Error("empty access token")
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
}

func TestJWTManager_RefreshAccessToken_Garbage(t *testing.T) {
	m := NewJWTManager(nil)

	if _, _, err := m.RefreshAccessToken("not-a-refresh-token"); err == nil {
		t.Error("garbage refresh token accepted")
	}
}

func TestJWTManager_GetAccessTokenExpiry(t *testing.T) {
	m := NewJWTManager(&JWTConfig{AccessTokenExpiry: 15 * time.Minute})

	if got, want := m.GetAccessTokenExpiry(), int64(15*60); got != want {
		t.Errorf("GetAccessTokenExpiry = %d, want %d", got, want)
	}
}

func TestDefaultJWTConfig(t *testing.T) {
	cfg := DefaultJWTConfig()

	if cfg.SecretKey == "" {
		t.Error("default secret key is empty")
	}
	if cfg.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("AccessTokenExpiry = %v, want 15m", cfg.AccessTokenExpiry)
	}
	if cfg.RefreshTokenExpiry != 7*24*time.Hour {
		t.Errorf("RefreshTokenExpiry = %v, want 168h", cfg.RefreshTokenExpiry)
	}
	if cfg.Issuer != "waterflow" {
		t.Errorf("Issuer = %q, want waterflow", cfg.Issuer)
	}
}

func TestNewJWTManager_NilConfig(t *testing.T) {
	m := NewJWTManager(nil)

	token, err := m.GenerateAccessToken("user", "name", "role")
	if err != nil {
		t.Fatalf("GenerateAccessToken with defaults: %v", err)
	}
	if token == "" {
		t.Error("empty token")
	}
}
