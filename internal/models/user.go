package models

import "time"

// User represents an account identity. The password is only ever stored hashed.
type User struct {
	ID               string `gorm:"primaryKey;size:64"` // UUID
	FirstName        string `gorm:"size:64;not null"`
	LastName         string `gorm:"size:64;not null"`
	Email            string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash     string `gorm:"size:255;not null"`
	Organization     string `gorm:"size:128;not null"`
	StripeCustomerID string `gorm:"size:255"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
