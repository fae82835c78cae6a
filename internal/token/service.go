package token

import (
	"errors"
	"fmt"
	"time"

	"datapilot/internal/models"
	"datapilot/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Rotation failure kinds. The refresh handler maps both to the same client
// response, but the guard-facing callers branch on which one occurred.
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked = errors.New("refresh token has been revoked")
)

// Claims is the payload carried by both session and refresh tokens.
// TokenID is only set on refresh tokens.
type Claims struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	TokenID      string `json:"token_id,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the signing secrets and lifetimes for the token service.
// RefreshSecret falls back to AccessSecret when empty.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Service issues, verifies, rotates and revokes session tokens. Verification
// is pure computation; every lifecycle decision beyond that (revocation,
// freshness) goes through the token store, which is what makes logout and
// single-session-per-slot work with otherwise stateless tokens.
type Service struct {
	tokens *store.TokenStore
	cfg    Config
}

func NewService(tokens *store.TokenStore, cfg Config) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	return &Service{tokens: tokens, cfg: cfg}
}

// Issue signs a session and a refresh token for the user and persists both
// under the default slot, overwriting any prior record. Older tokens for that
// slot stop verifying against storage immediately, even while still
// cryptographically valid.
func (s *Service) Issue(user *models.User) (accessToken, refreshToken string, err error) {
	accessToken, err = s.signAccess(user.ID, user.Email, user.Organization)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err = s.signRefresh(user.ID, user.Email, user.Organization)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.tokens.Upsert(user.ID, models.SlotDefault, accessToken, refreshToken); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *Service) signAccess(userID, email, organization string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:       userID,
		Email:        email,
		Organization: organization,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.AccessSecret))
}

func (s *Service) signRefresh(userID, email, organization string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:       userID,
		Email:        email,
		Organization: organization,
		TokenID:      uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.RefreshSecret))
}

// VerifyAccess checks signature and expiry of a session token. It returns nil
// on any malformed, expired or badly signed token and never consults storage.
func (s *Service) VerifyAccess(tokenStr string) *Claims {
	return verify(tokenStr, s.cfg.AccessSecret)
}

// VerifyRefresh is VerifyAccess for refresh tokens.
func (s *Service) VerifyRefresh(tokenStr string) *Claims {
	return verify(tokenStr, s.cfg.RefreshSecret)
}

func verify(tokenStr, secret string) *Claims {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil
	}
	return claims
}

// IsRevoked reports whether the presented session token no longer matches the
// one on record for the default slot. A missing record counts as revoked;
// overwrite-on-reissue is what enforces one live session per slot.
func (s *Service) IsRevoked(userID, tokenStr string) (bool, error) {
	rec, err := s.tokens.Find(userID, models.SlotDefault)
	if err != nil {
		return false, err
	}
	if rec == nil || rec.AccountToken != tokenStr {
		return true, nil
	}
	return false, nil
}

// IsExpired decodes the token without verifying the signature and compares
// its exp claim to the current time. Decode failures count as expired.
func (s *Service) IsExpired(tokenStr string) bool {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Before(time.Now())
}

// Rotate exchanges a valid refresh token for a new session token. The refresh
// token itself is reused until its own expiry. A refresh token superseded by a
// newer login fails with ErrRefreshTokenRevoked.
func (s *Service) Rotate(refreshToken string) (string, error) {
	claims := s.VerifyRefresh(refreshToken)
	if claims == nil {
		return "", ErrInvalidRefreshToken
	}

	rec, err := s.tokens.Find(claims.UserID, models.SlotDefault)
	if err != nil {
		return "", err
	}
	if rec == nil || rec.RefreshToken != refreshToken {
		return "", ErrRefreshTokenRevoked
	}

	accessToken, err := s.signAccess(claims.UserID, claims.Email, claims.Organization)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	if err := s.tokens.UpdateAccountToken(claims.UserID, models.SlotDefault, accessToken); err != nil {
		return "", err
	}
	return accessToken, nil
}

// Revoke deletes the user's token records for all slots. Used by logout;
// idempotent.
func (s *Service) Revoke(userID string) error {
	return s.tokens.Delete(userID)
}

// Stored returns the default-slot token record, or nil when none exists.
func (s *Service) Stored(userID string) (*models.UserToken, error) {
	return s.tokens.Find(userID, models.SlotDefault)
}

// TouchLastUsed bumps the last_used timestamp on the default-slot record.
func (s *Service) TouchLastUsed(userID string) error {
	return s.tokens.TouchLastUsed(userID)
}
