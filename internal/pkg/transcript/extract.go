package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedPayloadError marks a session-report body that failed boundary
// validation. Handlers map it to a 400 instead of letting partial data
// propagate into business logic.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed session report: %s", e.Reason)
}

// SessionReport is the end-of-call payload delivered by the voice-agent
// runtime. The item list is duck-typed on the wire, so content is kept raw
// and resolved during extraction.
type SessionReport struct {
	History struct {
		Items []Item `json:"items"`
	} `json:"history"`
}

// Item is one entry of the agent's conversation history. Only "message"
// items carry transcript text; tool calls and other item types are skipped.
type Item struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	StartTime float64         `json:"startTime"`
	EndTime   float64         `json:"endTime"`
}

// Segment is one resolved utterance.
type Segment struct {
	Speaker   string
	Text      string
	StartTime float64
	EndTime   float64
}

// contentPart is one element of a list-shaped content field. Text lives in
// either "text" or "transcript" depending on whether the part came from typed
// input or speech recognition.
type contentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
}

// Parse validates and decodes a raw session report.
func Parse(raw json.RawMessage) (*SessionReport, error) {
	if len(raw) == 0 {
		return nil, &MalformedPayloadError{Reason: "sessionReport is empty"}
	}
	var report SessionReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, &MalformedPayloadError{Reason: err.Error()}
	}
	if report.History.Items == nil {
		return nil, &MalformedPayloadError{Reason: "history.items is missing"}
	}
	return &report, nil
}

// Extract flattens the history into ordered segments. Non-message items and
// items whose resolved text is empty are dropped.
func Extract(report *SessionReport) []Segment {
	segments := make([]Segment, 0, len(report.History.Items))
	for _, item := range report.History.Items {
		if item.Type != "message" {
			continue
		}
		text := resolveText(item.Content)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Speaker:   speakerForRole(item.Role),
			Text:      text,
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
		})
	}
	return segments
}

// WordCount counts whitespace-separated words across all segments.
func WordCount(segments []Segment) int {
	count := 0
	for _, s := range segments {
		count += len(strings.Fields(s.Text))
	}
	return count
}

// TurnCount counts speaker changes plus one, i.e. conversational turns.
func TurnCount(segments []Segment) int {
	if len(segments) == 0 {
		return 0
	}
	turns := 1
	for i := 1; i < len(segments); i++ {
		if segments[i].Speaker != segments[i-1].Speaker {
			turns++
		}
	}
	return turns
}

func speakerForRole(role string) string {
	if strings.EqualFold(role, "user") {
		return "user"
	}
	return "agent"
}

// resolveText handles the two wire shapes of a content field: a plain string,
// or a list whose elements are strings or {type, text|transcript} objects.
func resolveText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return ""
	}

	parts := make([]string, 0, len(list))
	for _, elem := range list {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			if t := strings.TrimSpace(s); t != "" {
				parts = append(parts, t)
			}
			continue
		}
		var part contentPart
		if err := json.Unmarshal(elem, &part); err != nil {
			continue
		}
		text := part.Text
		if text == "" {
			text = part.Transcript
		}
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
