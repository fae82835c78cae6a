package models

import "time"

// Token slots. "default" holds the login session; the others are reserved
// for third-party integration credentials.
const (
	SlotDefault = "default"
	SlotHRIS    = "hris"
	SlotATS     = "ats"
)

// UserToken stores the current session and refresh token for one
// (user, integration slot) pair. At most one live record per pair; a new
// issuance overwrites the previous one, which is what revokes older sessions.
type UserToken struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          string `gorm:"size:64;not null;uniqueIndex:idx_user_tokens_user_slot"`
	IntegrationType string `gorm:"size:32;not null;uniqueIndex:idx_user_tokens_user_slot"`
	AccountToken    string `gorm:"not null"`
	RefreshToken    string `gorm:"not null"`

	// reserved for integration slots (hris/ats); never set by the auth flow
	MergeAccessToken string
	PlatformName     string `gorm:"size:128"`

	CreatedAt time.Time
	LastUsed  time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
