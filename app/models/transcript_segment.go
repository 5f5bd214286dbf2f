package models

import "time"

const (
	SpeakerUser  = "user"
	SpeakerAgent = "agent"
)

// TranscriptSegment is one utterance of the conversation. Segments are
// bulk-inserted exactly once per interview at session-report time; the unique
// (interview_id, seq) index makes a duplicate delivery a no-op insert.
// Timestamps are agent-supplied seconds and are not guaranteed monotonic
// across speaker boundaries.
type TranscriptSegment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	InterviewID uint      `gorm:"not null;index:ux_transcript_segments_interview_seq,unique,priority:1" json:"interview_id"`
	Seq         int       `gorm:"not null;index:ux_transcript_segments_interview_seq,unique,priority:2" json:"seq"`
	Speaker     string    `gorm:"type:varchar(16);not null" json:"speaker"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	StartTime   float64   `gorm:"not null;default:0" json:"start_time"`
	EndTime     float64   `gorm:"not null;default:0" json:"end_time"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
