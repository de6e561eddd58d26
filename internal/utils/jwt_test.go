package utils

import (
	"testing"
	"time"

	"hms/internal/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testJWTConfig())

	token, err := issuer.GenerateAccessToken("user-1", "hospital-1", []string{"role-a", "role-b"})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := issuer.ParseAccessToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "user-1" || claims.HospitalID != "hospital-1" {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.RoleIDs) != 2 {
		t.Errorf("role ids = %v, want 2 entries", claims.RoleIDs)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testJWTConfig())

	token, err := issuer.GenerateRefreshToken("user-1", "")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := issuer.ParseRefreshToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "user-1" || claims.HospitalID != "" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	issuer := NewTokenIssuer(testJWTConfig())

	access, err := issuer.GenerateAccessToken("user-1", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.ParseRefreshToken(access); err == nil {
		t.Error("access token must not validate as refresh token")
	}

	refresh, err := issuer.GenerateRefreshToken("user-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.ParseAccessToken(refresh); err == nil {
		t.Error("refresh token must not validate as access token")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	issuer := NewTokenIssuer(testJWTConfig())

	token, err := issuer.GenerateAccessToken("user-1", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	tampered := token[:len(token)-4] + "aaaa"
	if _, err := issuer.ParseAccessToken(tampered); err == nil {
		t.Error("tampered token accepted")
	}
}
