package voice

import (
	"encoding/json"
	"fmt"

	"github.com/vysahq/vysa-server/app/models"
)

// Webhook event types delivered by the voice platform.
const (
	EventEgressStarted = "egress_started"
	EventEgressUpdated = "egress_updated"
	EventEgressEnded   = "egress_ended"
)

// Egress status values inside egress_updated / egress_ended events.
const (
	EgressStatusActive   = "EGRESS_ACTIVE"
	EgressStatusEnding   = "EGRESS_ENDING"
	EgressStatusComplete = "EGRESS_COMPLETE"
	EgressStatusFailed   = "EGRESS_FAILED"
	EgressStatusAborted  = "EGRESS_ABORTED"
)

// MalformedEventError marks a webhook body that failed boundary validation.
type MalformedEventError struct {
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed voice event: %s", e.Reason)
}

// FileResult describes one file the egress wrote to durable storage.
type FileResult struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// EgressInfo is the recording lifecycle payload of a webhook event.
type EgressInfo struct {
	RoomName    string       `json:"roomName"`
	EgressID    string       `json:"egressId"`
	Status      string       `json:"status"`
	Error       string       `json:"error,omitempty"`
	FileResults []FileResult `json:"fileResults,omitempty"`
}

// WebhookEvent is the envelope delivered to the recording webhook.
type WebhookEvent struct {
	ID         string      `json:"id"`
	Event      string      `json:"event"`
	EgressInfo *EgressInfo `json:"egressInfo"`
}

// ParseWebhookEvent validates and decodes a raw webhook body.
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, &MalformedEventError{Reason: err.Error()}
	}
	if ev.Event == "" {
		return nil, &MalformedEventError{Reason: "event type is missing"}
	}
	if ev.EgressInfo == nil || ev.EgressInfo.RoomName == "" {
		return nil, &MalformedEventError{Reason: "egressInfo.roomName is missing"}
	}
	return &ev, nil
}

// Transition is the state change an egress event implies for an interview.
type Transition struct {
	// Apply is false for event types or statuses the tracker ignores.
	Apply           bool
	RecordingStatus string
	RecordingURL    string
	// InterviewFailed is set when the egress failed hard and the parent
	// interview should be failed with it.
	InterviewFailed bool
}

// TransitionFor maps an egress event onto the recording state machine:
// pending -> recording -> processing -> {ready | failed}. Events are
// idempotent: re-applying a transition lands in the same state.
func TransitionFor(ev *WebhookEvent) Transition {
	info := ev.EgressInfo
	switch ev.Event {
	case EventEgressStarted:
		return Transition{Apply: true, RecordingStatus: models.RecordingStatusRecording}

	case EventEgressUpdated:
		switch info.Status {
		case EgressStatusActive:
			return Transition{Apply: true, RecordingStatus: models.RecordingStatusRecording}
		case EgressStatusEnding:
			return Transition{Apply: true, RecordingStatus: models.RecordingStatusProcessing}
		}
		return Transition{}

	case EventEgressEnded:
		if info.Status == EgressStatusComplete && len(info.FileResults) > 0 {
			return Transition{
				Apply:           true,
				RecordingStatus: models.RecordingStatusReady,
				RecordingURL:    info.FileResults[0].Location,
			}
		}
		return Transition{
			Apply:           true,
			RecordingStatus: models.RecordingStatusFailed,
			InterviewFailed: true,
		}
	}
	return Transition{}
}
