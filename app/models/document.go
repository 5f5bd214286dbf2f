package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DocumentStatusPending      = "pending"
	DocumentStatusPartitioning = "partitioning"
	DocumentStatusIndexed      = "indexed"
	DocumentStatusFailed       = "failed"
)

// Document tracks a supporting document uploaded to the external indexing
// platform. ExternalID correlates status webhooks from the platform back to
// this row; the file body itself is never stored locally.
type Document struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	FileName    string         `gorm:"type:varchar(255);not null" json:"file_name"`
	FileSize    int64          `gorm:"not null;default:0" json:"file_size"`
	ContentType string         `gorm:"type:varchar(100);default:''" json:"content_type"`
	ExternalID  string         `gorm:"type:varchar(191);default:'';index" json:"-"`
	IndexStatus string         `gorm:"type:varchar(32);not null;default:'pending'" json:"index_status"`
	IndexError  string         `gorm:"type:text" json:"-"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
