package store

import (
	"errors"
	"fmt"
	"time"

	"datapilot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenStore persists session/refresh token records, one per
// (user, integration slot) pair.
type TokenStore struct {
	DB *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{DB: db}
}

// Upsert writes the token record for (userID, slot), replacing any existing
// one. The unique index on (user_id, integration_type) is the only concurrency
// control: two concurrent logins race at the database and the later write
// wins, which is the intended single-session-per-slot behavior.
func (s *TokenStore) Upsert(userID, slot, accountToken, refreshToken string) error {
	now := time.Now()
	rec := models.UserToken{
		UserID:          userID,
		IntegrationType: slot,
		AccountToken:    accountToken,
		RefreshToken:    refreshToken,
		CreatedAt:       now,
		LastUsed:        now,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "integration_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"account_token": accountToken,
			"refresh_token": refreshToken,
			"created_at":    now,
			"last_used":     now,
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert token record: %w", err)
	}
	return nil
}

// Find returns the token record for (userID, slot), or nil if none exists.
func (s *TokenStore) Find(userID, slot string) (*models.UserToken, error) {
	var rec models.UserToken
	err := s.DB.Where("user_id = ? AND integration_type = ?", userID, slot).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find token record: %w", err)
	}
	return &rec, nil
}

// UpdateAccountToken replaces only the session token on an existing record.
// The refresh token and created_at stay untouched, so the fresh-auth window
// still dates from the original issuance.
func (s *TokenStore) UpdateAccountToken(userID, slot, accountToken string) error {
	err := s.DB.Model(&models.UserToken{}).
		Where("user_id = ? AND integration_type = ?", userID, slot).
		Update("account_token", accountToken).Error
	if err != nil {
		return fmt.Errorf("update account token: %w", err)
	}
	return nil
}

// Delete removes the token records for all slots of a user. Deleting a
// non-existent record is not an error.
func (s *TokenStore) Delete(userID string) error {
	err := s.DB.Where("user_id = ?", userID).Delete(&models.UserToken{}).Error
	if err != nil {
		return fmt.Errorf("delete token records: %w", err)
	}
	return nil
}

// TouchLastUsed bumps last_used on the default-slot record.
func (s *TokenStore) TouchLastUsed(userID string) error {
	err := s.DB.Model(&models.UserToken{}).
		Where("user_id = ? AND integration_type = ?", userID, models.SlotDefault).
		Update("last_used", time.Now()).Error
	if err != nil {
		return fmt.Errorf("touch last used: %w", err)
	}
	return nil
}
