package models

import "time"

// Report is a generated report document owned by a user.
type Report struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:64;index;not null"`
	Title     string `gorm:"size:255;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
