package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"hms/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims carry identity hints only. Role IDs are re-resolved against
// the live catalog on every request; the token is never the source of truth
// for permissions.
type AccessClaims struct {
	UserID     string   `json:"sub"`
	HospitalID string   `json:"hospitalId,omitempty"`
	RoleIDs    []string `json:"roleIds,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims deliberately omit roles so a stolen refresh token carries
// nothing actionable besides the ability to mint.
type RefreshClaims struct {
	UserID     string `json:"sub"`
	HospitalID string `json:"hospitalId,omitempty"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	cfg config.JWTConfig
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg}
}

func (t *TokenIssuer) GenerateAccessToken(userID, hospitalID string, roleIDs []string) (string, error) {
	claims := AccessClaims{
		UserID:     userID,
		HospitalID: hospitalID,
		RoleIDs:    roleIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.cfg.AccessSecret))
}

func (t *TokenIssuer) GenerateRefreshToken(userID, hospitalID string) (string, error) {
	claims := RefreshClaims{
		UserID:     userID,
		HospitalID: hospitalID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.cfg.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.cfg.RefreshSecret))
}

func (t *TokenIssuer) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(tokenString, claims, t.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *TokenIssuer) ParseRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(tokenString, claims, t.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *TokenIssuer) parse(tokenString string, claims jwt.Claims, secret string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// RefreshTTL exposes the configured refresh lifetime for cookie expiry.
func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.cfg.RefreshTTL
}
