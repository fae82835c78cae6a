package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"datapilot/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test_store.db")
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

func newUser(id, email string) *models.User {
	return &models.User{
		ID:           id,
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "hash",
		Organization: "Testing Inc",
	}
}

func TestUserStoreCreateAndFind(t *testing.T) {
	s := NewUserStore(setupTestDB(t))

	if err := s.Create(newUser("u1", "u1@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := s.FindByEmail("u1@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if found == nil || found.ID != "u1" {
		t.Errorf("FindByEmail = %+v, want user u1", found)
	}

	missing, err := s.FindByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if missing != nil {
		t.Error("FindByEmail should return nil for unknown email")
	}
}

func TestUserStoreDuplicateEmail(t *testing.T) {
	s := NewUserStore(setupTestDB(t))

	if err := s.Create(newUser("u1", "dup@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := s.Create(newUser("u2", "dup@example.com"))
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Create duplicate = %v, want ErrDuplicateEmail", err)
	}
}

func TestTokenStoreUpsertOverwrites(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	tokens := NewTokenStore(db)

	if err := users.Create(newUser("u1", "u1@example.com")); err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	if err := tokens.Upsert("u1", models.SlotDefault, "access-1", "refresh-1"); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := tokens.Upsert("u1", models.SlotDefault, "access-2", "refresh-2"); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	rec, err := tokens.Find("u1", models.SlotDefault)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if rec == nil {
		t.Fatal("Find returned nil after Upsert")
	}
	if rec.AccountToken != "access-2" || rec.RefreshToken != "refresh-2" {
		t.Errorf("record = %q/%q, want access-2/refresh-2", rec.AccountToken, rec.RefreshToken)
	}

	var count int64
	db.Model(&models.UserToken{}).Where("user_id = ?", "u1").Count(&count)
	if count != 1 {
		t.Errorf("record count = %d, want 1 (upsert must overwrite)", count)
	}
}

func TestTokenStoreSlotsAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenStore(db)

	if err := NewUserStore(db).Create(newUser("u1", "u1@example.com")); err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	if err := tokens.Upsert("u1", models.SlotDefault, "a-default", "r-default"); err != nil {
		t.Fatalf("Upsert default failed: %v", err)
	}
	if err := tokens.Upsert("u1", models.SlotHRIS, "a-hris", "r-hris"); err != nil {
		t.Fatalf("Upsert hris failed: %v", err)
	}

	rec, err := tokens.Find("u1", models.SlotDefault)
	if err != nil || rec == nil {
		t.Fatalf("Find default = %v, %v", rec, err)
	}
	if rec.AccountToken != "a-default" {
		t.Error("default slot clobbered by another slot")
	}
}

func TestTokenStoreUpdateAccountToken(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenStore(db)

	if err := tokens.Upsert("u1", models.SlotDefault, "access-1", "refresh-1"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	before, err := tokens.Find("u1", models.SlotDefault)
	if err != nil || before == nil {
		t.Fatalf("Find = %v, %v", before, err)
	}

	if err := tokens.UpdateAccountToken("u1", models.SlotDefault, "access-2"); err != nil {
		t.Fatalf("UpdateAccountToken failed: %v", err)
	}

	after, err := tokens.Find("u1", models.SlotDefault)
	if err != nil || after == nil {
		t.Fatalf("Find = %v, %v", after, err)
	}
	if after.AccountToken != "access-2" {
		t.Error("account token not updated")
	}
	if after.RefreshToken != "refresh-1" {
		t.Error("refresh token must not change")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("created_at must not change")
	}
}

func TestTokenStoreIntegrationSlotFields(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenStore(db)

	// integration records carry the provider credential and platform name
	rec := models.UserToken{
		UserID:           "u1",
		IntegrationType:  models.SlotATS,
		AccountToken:     "a-ats",
		RefreshToken:     "r-ats",
		MergeAccessToken: "merge-account-token",
		PlatformName:     "Greenhouse",
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("create ats record: %v", err)
	}
	if err := tokens.Upsert("u1", models.SlotDefault, "a-default", "r-default"); err != nil {
		t.Fatalf("Upsert default failed: %v", err)
	}

	found, err := tokens.Find("u1", models.SlotATS)
	if err != nil || found == nil {
		t.Fatalf("Find ats = %v, %v", found, err)
	}
	if found.MergeAccessToken != "merge-account-token" || found.PlatformName != "Greenhouse" {
		t.Errorf("integration fields = %q/%q, want merge-account-token/Greenhouse",
			found.MergeAccessToken, found.PlatformName)
	}

	// logout removes every slot, integration records included
	if err := tokens.Delete("u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	for _, slot := range []string{models.SlotDefault, models.SlotATS} {
		rec, err := tokens.Find("u1", slot)
		if err != nil {
			t.Fatalf("Find %s failed: %v", slot, err)
		}
		if rec != nil {
			t.Errorf("%s record should be gone after Delete", slot)
		}
	}
}

func TestTokenStoreDeleteIdempotent(t *testing.T) {
	tokens := NewTokenStore(setupTestDB(t))

	if err := tokens.Upsert("u1", models.SlotDefault, "a", "r"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := tokens.Delete("u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	rec, err := tokens.Find("u1", models.SlotDefault)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if rec != nil {
		t.Error("record should be gone after Delete")
	}

	if err := tokens.Delete("u1"); err != nil {
		t.Errorf("deleting a missing record should not fail: %v", err)
	}
}

func TestTokenStoreTouchLastUsed(t *testing.T) {
	tokens := NewTokenStore(setupTestDB(t))

	if err := tokens.Upsert("u1", models.SlotDefault, "a", "r"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	before, _ := tokens.Find("u1", models.SlotDefault)

	time.Sleep(10 * time.Millisecond)
	if err := tokens.TouchLastUsed("u1"); err != nil {
		t.Fatalf("TouchLastUsed failed: %v", err)
	}

	after, _ := tokens.Find("u1", models.SlotDefault)
	if !after.LastUsed.After(before.LastUsed) {
		t.Error("last_used should move forward")
	}
}
