package models

import (
	"time"
)

const (
	InterviewStatusInProgress = "in_progress"
	InterviewStatusCompleted  = "completed"
	InterviewStatusFailed     = "failed"
)

const (
	RecordingStatusPending    = "pending"
	RecordingStatusRecording  = "recording"
	RecordingStatusProcessing = "processing"
	RecordingStatusReady      = "ready"
	RecordingStatusFailed     = "failed"
)

const (
	ChargeDecisionCharged    = "charged"
	ChargeDecisionNotCharged = "not_charged"
)

const (
	EndedByUser     = "user"
	EndedByAgent    = "agent"
	EndedByTimeout  = "timeout"
	EndedByPlatform = "platform"
)

// Interview is one practice session. RoomName is the correlation key shared
// with the voice platform and threads through the session-report call and all
// egress webhooks. CreditsDeducted is nil until settlement has run; 0 means
// settled as free.
type Interview struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	UserID                uint       `gorm:"not null;index" json:"user_id"`
	RoomName              string     `gorm:"uniqueIndex;type:varchar(191);not null" json:"room_name"`
	VisaType              string     `gorm:"type:varchar(50);default:'B1/B2'" json:"visa_type"`
	Embassy               string     `gorm:"type:varchar(100);default:''" json:"embassy"`
	Status                string     `gorm:"type:varchar(32);not null;default:'in_progress';index" json:"status"`
	CreditsPlanned        int        `gorm:"not null;default:0" json:"credits_planned"`
	CreditsDeducted       *int       `gorm:"default:null" json:"credits_deducted"`
	ChargeDecision        string     `gorm:"type:varchar(32);default:''" json:"charge_decision"`
	ChargeReason          string     `gorm:"type:text" json:"charge_reason"`
	EndedBy               string     `gorm:"type:varchar(32);default:''" json:"ended_by"`
	DurationSeconds       int        `gorm:"not null;default:0" json:"duration_seconds"`
	StartedAt             time.Time  `gorm:"type:timestamp;not null" json:"started_at"`
	EndedAt               *time.Time `gorm:"type:timestamp;default:null" json:"ended_at"`
	RecordingStatus       string     `gorm:"type:varchar(32);not null;default:'pending'" json:"recording_status"`
	RecordingURL          string     `gorm:"type:varchar(512);default:''" json:"recording_url"`
	EgressID              string     `gorm:"type:varchar(191);default:'';index" json:"-"`
	ExpiresAt             time.Time  `gorm:"type:timestamp;not null;index" json:"expires_at"`
	ExpirationWarningSent bool       `gorm:"not null;default:false" json:"-"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User     User                `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Segments []TranscriptSegment `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE" json:"segments,omitempty"`
	Report   *InterviewReport    `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE" json:"report,omitempty"`
}

// IsSettled reports whether the credit settlement has already been applied.
func (i *Interview) IsSettled() bool {
	return i.CreditsDeducted != nil
}
