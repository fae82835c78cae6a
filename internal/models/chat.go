package models

import "time"

// Chat is one conversation transcript owned by a user.
type Chat struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:64;index;not null"`
	Title     string `gorm:"size:255;default:'Untitled Chat'"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

// ChatMessage is a single message inside a chat. Plots is optional JSON and
// only present on assistant messages.
type ChatMessage struct {
	ID        uint   `gorm:"primaryKey"`
	ChatID    uint   `gorm:"index;not null"`
	Sender    string `gorm:"size:16;not null"` // "user" or "assistant"
	Message   string `gorm:"type:text"`
	Plots     string `gorm:"type:text"` // JSON
	CreatedAt time.Time

	Chat Chat `gorm:"constraint:OnDelete:CASCADE"`
}
