package models

import "time"

const (
	PurchaseStatusSucceeded = "succeeded"
	PurchaseStatusRefunded  = "refunded"
)

// Purchase records one external payment intent. The unique PaymentIntentID is
// the idempotency key that makes purchase sync safe to run from both the
// post-checkout redirect and the asynchronous payment webhook.
type Purchase struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	PaymentIntentID string    `gorm:"uniqueIndex;type:varchar(191);not null" json:"payment_intent_id"`
	Credits         int       `gorm:"not null" json:"credits"`
	AmountCents     int64     `gorm:"not null" json:"amount_cents"`
	Currency        string    `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	Status          string    `gorm:"type:varchar(32);not null;default:'succeeded'" json:"status"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
