package models

import "time"

const (
	LedgerTypePurchase  = "purchase"
	LedgerTypeDeduction = "deduction"
	LedgerTypeRefund    = "refund"
)

// CreditLedger is the append-only log of balance changes. Balance carries the
// user's balance immediately after this entry was applied; for any user the
// sum of Amount over all entries must equal User.Credits. Entries are only
// written inside the same transaction that mutates the balance.
type CreditLedger struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Amount      int       `gorm:"not null" json:"amount"`
	Balance     int       `gorm:"not null" json:"balance"`
	Type        string    `gorm:"type:varchar(32);not null;index" json:"type"`
	Description string    `gorm:"type:varchar(512);default:''" json:"description"`
	ReferenceID string    `gorm:"type:varchar(191);default:'';index" json:"reference_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
