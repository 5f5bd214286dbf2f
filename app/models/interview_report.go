package models

import (
	"encoding/json"
	"time"
)

const (
	RecommendationApprove     = "approve"
	RecommendationBorderline  = "borderline"
	RecommendationRefuse      = "refuse"
	RecommendationInsufficent = "insufficient_data"
)

// InterviewReport is the one-to-one AI analysis of a completed interview.
// The array-valued fields are stored JSON-serialized; use the accessors
// instead of touching the raw columns.
type InterviewReport struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InterviewID    uint      `gorm:"uniqueIndex;not null" json:"interview_id"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	Recommendation string    `gorm:"type:varchar(32);not null;default:'insufficient_data'" json:"recommendation"`
	StrengthsJSON  string    `gorm:"type:text" json:"-"`
	WeaknessesJSON string    `gorm:"type:text" json:"-"`
	RedFlagsJSON   string    `gorm:"type:text" json:"-"`
	CommentsJSON   string    `gorm:"type:text" json:"-"`
	Summary        string    `gorm:"type:text" json:"summary"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReportComment is a timestamped observation tied to a transcript position.
type ReportComment struct {
	AtSeconds float64 `json:"at_seconds"`
	Comment   string  `json:"comment"`
}

func (r *InterviewReport) Strengths() []string {
	return decodeStringList(r.StrengthsJSON)
}

func (r *InterviewReport) Weaknesses() []string {
	return decodeStringList(r.WeaknessesJSON)
}

func (r *InterviewReport) RedFlags() []string {
	return decodeStringList(r.RedFlagsJSON)
}

func (r *InterviewReport) Comments() []ReportComment {
	if r.CommentsJSON == "" {
		return nil
	}
	var out []ReportComment
	if err := json.Unmarshal([]byte(r.CommentsJSON), &out); err != nil {
		return nil
	}
	return out
}

func (r *InterviewReport) SetLists(strengths, weaknesses, redFlags []string, comments []ReportComment) error {
	var err error
	if r.StrengthsJSON, err = encodeJSON(strengths); err != nil {
		return err
	}
	if r.WeaknessesJSON, err = encodeJSON(weaknesses); err != nil {
		return err
	}
	if r.RedFlagsJSON, err = encodeJSON(redFlags); err != nil {
		return err
	}
	if r.CommentsJSON, err = encodeJSON(comments); err != nil {
		return err
	}
	return nil
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
