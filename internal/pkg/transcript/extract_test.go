package transcript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustParse(t *testing.T, raw string) *SessionReport {
	t.Helper()
	report, err := Parse(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return report
}

func TestExtract_PlainStringContent(t *testing.T) {
	report := mustParse(t, `{"history":{"items":[
		{"type":"message","role":"user","content":["hello"]}
	]}}`)

	segments := Extract(report)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	assert.Equal(t, "user", segments[0].Speaker)
	assert.Equal(t, "hello", segments[0].Text)
}

func TestExtract_SkipsNonMessageItems(t *testing.T) {
	report := mustParse(t, `{"history":{"items":[
		{"type":"function_call","role":"agent","content":["lookup_visa_status"]},
		{"type":"message","role":"assistant","content":"Good morning."}
	]}}`)

	segments := Extract(report)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	assert.Equal(t, "agent", segments[0].Speaker)
	assert.Equal(t, "Good morning.", segments[0].Text)
}

func TestExtract_JoinsTextAndTranscriptParts(t *testing.T) {
	report := mustParse(t, `{"history":{"items":[
		{"type":"message","role":"user","content":[{"type":"text","text":"hi"},{"transcript":"there"}]}
	]}}`)

	segments := Extract(report)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	assert.Equal(t, "hi there", segments[0].Text)
}

func TestExtract_SkipsEmptyResolvedText(t *testing.T) {
	report := mustParse(t, `{"history":{"items":[
		{"type":"message","role":"user","content":[]},
		{"type":"message","role":"user","content":"   "},
		{"type":"message","role":"user","content":[{"type":"text","text":""}]}
	]}}`)

	assert.Empty(t, Extract(report))
}

func TestExtract_CarriesTimestamps(t *testing.T) {
	report := mustParse(t, `{"history":{"items":[
		{"type":"message","role":"assistant","content":"Why do you want to study in the US?","startTime":3.5,"endTime":6.25}
	]}}`)

	segments := Extract(report)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	assert.Equal(t, 3.5, segments[0].StartTime)
	assert.Equal(t, 6.25, segments[0].EndTime)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "not json", raw: "nope"},
		{name: "missing items", raw: `{"history":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(json.RawMessage(tt.raw))
			var malformed *MalformedPayloadError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestWordAndTurnCounts(t *testing.T) {
	segments := []Segment{
		{Speaker: "agent", Text: "Good morning, please state your name."},
		{Speaker: "user", Text: "My name is Aruzhan."},
		{Speaker: "user", Text: "I am from Kazakhstan."},
		{Speaker: "agent", Text: "Thank you."},
	}

	assert.Equal(t, 16, WordCount(segments))
	assert.Equal(t, 3, TurnCount(segments))
	assert.Equal(t, 0, TurnCount(nil))
}
