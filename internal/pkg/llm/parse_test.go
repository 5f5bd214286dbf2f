package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChargeJudgment(t *testing.T) {
	judgment, err := ParseChargeJudgment(`{"shouldCharge": true, "reason": "real back-and-forth", "confidence": 0.9}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.True(t, judgment.ShouldCharge)
	assert.Equal(t, 0.9, judgment.Confidence)
}

func TestParseChargeJudgment_CodeFenced(t *testing.T) {
	raw := "```json\n{\"shouldCharge\": false, \"reason\": \"call dropped\", \"confidence\": 0.8}\n```"
	judgment, err := ParseChargeJudgment(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.False(t, judgment.ShouldCharge)
	assert.Equal(t, "call dropped", judgment.Reason)
}

func TestParseChargeJudgment_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "the user should be charged"},
		{name: "missing reason", raw: `{"shouldCharge": true, "confidence": 0.5}`},
		{name: "confidence out of range", raw: `{"shouldCharge": true, "reason": "x", "confidence": 1.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChargeJudgment(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseReportResult(t *testing.T) {
	raw := `{
		"score": 72,
		"recommendation": "borderline",
		"strengths": ["clear ties to home country"],
		"weaknesses": ["vague funding answer"],
		"red_flags": [],
		"comments": [{"at_seconds": 41.5, "comment": "hesitated on sponsor question"}],
		"summary": "Solid but needs work on finances."
	}`
	result, err := ParseReportResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, 72, result.Score)
	assert.Equal(t, "borderline", result.Recommendation)
	assert.Len(t, result.Comments, 1)
}

func TestParseReportResult_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "score out of range", raw: `{"score": 140, "recommendation": "approve", "summary": "x"}`},
		{name: "bad recommendation", raw: `{"score": 50, "recommendation": "maybe", "summary": "x"}`},
		{name: "missing summary", raw: `{"score": 50, "recommendation": "approve"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReportResult(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestFormatTranscript(t *testing.T) {
	out := FormatTranscript([]ReportSegment{
		{Speaker: "agent", Text: "State your name.", StartTime: 1.0},
		{Speaker: "user", Text: "Maria Lopez.", StartTime: 3.2},
	})
	assert.Contains(t, out, "Officer: State your name.")
	assert.Contains(t, out, "Applicant: Maria Lopez.")
}
