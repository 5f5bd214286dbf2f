package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ReportSegment is one transcript line handed to the report prompt.
type ReportSegment struct {
	Speaker   string
	Text      string
	StartTime float64
}

// ReportInput carries the interview context for report generation.
type ReportInput struct {
	VisaType        string
	Embassy         string
	DurationSeconds int
	Segments        []ReportSegment
}

// ReportComment is an observation anchored at a transcript position.
type ReportComment struct {
	AtSeconds float64 `json:"at_seconds"`
	Comment   string  `json:"comment"`
}

// ReportResult is the structured performance analysis returned by the model.
type ReportResult struct {
	Score          int             `json:"score"`
	Recommendation string          `json:"recommendation"`
	Strengths      []string        `json:"strengths"`
	Weaknesses     []string        `json:"weaknesses"`
	RedFlags       []string        `json:"red_flags"`
	Comments       []ReportComment `json:"comments"`
	Summary        string          `json:"summary"`
}

var validRecommendations = map[string]bool{
	"approve":           true,
	"borderline":        true,
	"refuse":            true,
	"insufficient_data": true,
}

// GenerateReport produces the structured interview analysis.
func (c *Client) GenerateReport(ctx context.Context, in ReportInput) (*ReportResult, error) {
	raw, err := c.generateText(ctx, c.cfg.ReportModel, buildReportPrompt(in))
	if err != nil {
		return nil, err
	}
	return ParseReportResult(raw)
}

// ParseReportResult decodes and validates the model output.
func ParseReportResult(raw string) (*ReportResult, error) {
	var result ReportResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("report score %d out of range", result.Score)
	}
	if !validRecommendations[result.Recommendation] {
		return nil, fmt.Errorf("report recommendation %q is not valid", result.Recommendation)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("report missing summary")
	}
	return &result, nil
}

// FormatTranscript renders segments as timestamped lines for the prompt.
func FormatTranscript(segments []ReportSegment) string {
	var b strings.Builder
	for _, s := range segments {
		role := "Officer"
		if s.Speaker == "user" {
			role = "Applicant"
		}
		fmt.Fprintf(&b, "[%06.1fs] %s: %s\n", s.StartTime, role, s.Text)
	}
	return b.String()
}

func buildReportPrompt(in ReportInput) string {
	var b strings.Builder
	b.WriteString("You are an experienced U.S. consular officer reviewing a recorded practice interview.\n")
	fmt.Fprintf(&b, "Visa type: %s\n", in.VisaType)
	if in.Embassy != "" {
		fmt.Fprintf(&b, "Embassy: %s\n", in.Embassy)
	}
	fmt.Fprintf(&b, "Interview length: %d seconds\n\n", in.DurationSeconds)
	b.WriteString("Transcript:\n")
	b.WriteString(FormatTranscript(in.Segments))
	b.WriteString("\nScore the applicant's performance and answer with exactly this JSON and nothing else:\n")
	b.WriteString(`{
  "score": <0..100>,
  "recommendation": "approve"|"borderline"|"refuse"|"insufficient_data",
  "strengths": ["..."],
  "weaknesses": ["..."],
  "red_flags": ["..."],
  "comments": [{"at_seconds": <number>, "comment": "..."}],
  "summary": "<short paragraph>"
}`)
	return b.String()
}
