package token

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"datapilot/internal/models"
	"datapilot/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test_token.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.UserToken{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewService(store.NewTokenStore(db), Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		Issuer:        "datapilot-test",
	})
	return svc, db
}

func testUser() *models.User {
	return &models.User{
		ID:           "user-1",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "irrelevant",
		Organization: "Analytical Engines",
	}
}

func TestIssueRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	access, refresh, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("Issue returned empty tokens")
	}

	claims := svc.VerifyAccess(access)
	if claims == nil {
		t.Fatal("VerifyAccess rejected a freshly issued token")
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Organization != user.Organization {
		t.Errorf("claims = %q/%q/%q, want %q/%q/%q",
			claims.UserID, claims.Email, claims.Organization,
			user.ID, user.Email, user.Organization)
	}
	if claims.TokenID != "" {
		t.Error("access token should not carry a rotation id")
	}

	refreshClaims := svc.VerifyRefresh(refresh)
	if refreshClaims == nil {
		t.Fatal("VerifyRefresh rejected a freshly issued token")
	}
	if refreshClaims.TokenID == "" {
		t.Error("refresh token should carry a unique rotation id")
	}
}

func TestIssuePersistsRecord(t *testing.T) {
	svc, db := newTestService(t)
	user := testUser()

	access, refresh, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var rec models.UserToken
	if err := db.Where("user_id = ? AND integration_type = ?", user.ID, models.SlotDefault).
		First(&rec).Error; err != nil {
		t.Fatalf("token record not persisted: %v", err)
	}
	if rec.AccountToken != access || rec.RefreshToken != refresh {
		t.Error("persisted tokens do not match issued tokens")
	}
}

func TestVerifyAccessRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if svc.VerifyAccess(tok) != nil {
			t.Errorf("VerifyAccess(%q) should return nil", tok)
		}
	}
}

func TestVerifyAccessRejectsWrongSecret(t *testing.T) {
	svc, db := newTestService(t)

	other := NewService(store.NewTokenStore(db), Config{AccessSecret: "other-secret"})
	access, _, err := other.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if svc.VerifyAccess(access) != nil {
		t.Error("VerifyAccess should reject a token signed with another secret")
	}
}

// signs a token directly, bypassing the service, to control the expiry
func signTestToken(t *testing.T, secret, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := &Claims{
		UserID:       userID,
		Email:        "ada@example.com",
		Organization: "Analytical Engines",
		TokenID:      "rotation-id",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

func TestVerifyAccessRejectsExpired(t *testing.T) {
	svc, _ := newTestService(t)

	expired := signTestToken(t, "test-access-secret", "user-1", time.Now().Add(-time.Minute))
	if svc.VerifyAccess(expired) != nil {
		t.Error("VerifyAccess should reject an expired token")
	}
}

func TestIsExpired(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	access, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if svc.IsExpired(access) {
		t.Error("fresh token reported expired")
	}

	expired := signTestToken(t, "test-access-secret", "user-1", time.Now().Add(-time.Minute))
	if !svc.IsExpired(expired) {
		t.Error("expired token not reported expired")
	}

	// decode failure fails closed
	if !svc.IsExpired("garbage") {
		t.Error("undecodable token should count as expired")
	}
}

func TestIsRevoked(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	access, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	revoked, err := svc.IsRevoked(user.ID, access)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("current token reported revoked")
	}

	// no record at all counts as revoked
	revoked, err = svc.IsRevoked("nobody", access)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Error("missing record should count as revoked")
	}
}

func TestRevokeInvalidatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	access, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := svc.Revoke(user.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err := svc.IsRevoked(user.ID, access)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Error("token should be revoked after Revoke")
	}

	// idempotent
	if err := svc.Revoke(user.ID); err != nil {
		t.Errorf("second Revoke should not fail: %v", err)
	}
}

func TestSecondIssueInvalidatesFirst(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	firstAccess, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("first Issue failed: %v", err)
	}
	secondAccess, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	revoked, err := svc.IsRevoked(user.ID, firstAccess)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Error("first session token should be revoked after a second login")
	}

	revoked, err = svc.IsRevoked(user.ID, secondAccess)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("second session token should still be live")
	}
}

func TestRotate(t *testing.T) {
	svc, db := newTestService(t)
	user := testUser()

	firstAccess, refresh, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var before models.UserToken
	if err := db.Where("user_id = ?", user.ID).First(&before).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}

	newAccess, err := svc.Rotate(refresh)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if newAccess == firstAccess {
		t.Error("Rotate should issue a distinct session token")
	}
	if svc.VerifyAccess(newAccess) == nil {
		t.Error("rotated session token should verify")
	}

	var after models.UserToken
	if err := db.Where("user_id = ?", user.ID).First(&after).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if after.AccountToken != newAccess {
		t.Error("rotated token not persisted")
	}
	if after.RefreshToken != refresh {
		t.Error("refresh token must stay unchanged on rotation")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("rotation must not restart the fresh-auth window")
	}
}

func TestRotateInvalidToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Rotate("garbage")
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("Rotate(garbage) = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRotateExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	if _, _, err := svc.Issue(user); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// correctly signed but past its exp claim
	expired := signTestToken(t, "test-refresh-secret", user.ID, time.Now().Add(-time.Minute))
	_, err := svc.Rotate(expired)
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("Rotate(expired) = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRotateSupersededToken(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	_, firstRefresh, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("first Issue failed: %v", err)
	}
	// a newer login overwrites the record
	if _, _, err := svc.Issue(user); err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	_, err = svc.Rotate(firstRefresh)
	if !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("Rotate(superseded) = %v, want ErrRefreshTokenRevoked", err)
	}
}

func TestRotateAfterLogout(t *testing.T) {
	svc, _ := newTestService(t)
	user := testUser()

	_, refresh, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := svc.Revoke(user.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	_, err = svc.Rotate(refresh)
	if !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("Rotate after logout = %v, want ErrRefreshTokenRevoked", err)
	}
}

func TestRefreshSecretFallback(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(store.NewTokenStore(db), Config{AccessSecret: "only-secret"})

	_, refresh, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if svc.VerifyRefresh(refresh) == nil {
		t.Error("refresh token should verify against the fallback secret")
	}
}

func BenchmarkVerifyAccess(b *testing.B) {
	svc := NewService(nil, Config{AccessSecret: "bench-secret"})
	access, err := svc.signAccess("user-1", "ada@example.com", "Analytical Engines")
	if err != nil {
		b.Fatalf("sign: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if svc.VerifyAccess(access) == nil {
			b.Fatal("verify failed")
		}
	}
}
