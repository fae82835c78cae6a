package models

import "time"

// Subscription mirrors the billing state kept by Stripe. Checkout and webhook
// processing live outside this service; these rows are plain bookkeeping.
type Subscription struct {
	ID                   uint   `gorm:"primaryKey"`
	UserID               string `gorm:"size:64;index;not null"`
	StripeCustomerID     string `gorm:"size:255"`
	StripeSubscriptionID string `gorm:"size:255;uniqueIndex:idx_subscriptions_stripe_sub"`
	StripePriceID        string `gorm:"size:255"`
	PlanType             string `gorm:"size:50;not null"`
	Status               string `gorm:"size:50;not null;default:'active'"`
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool `gorm:"default:false"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
