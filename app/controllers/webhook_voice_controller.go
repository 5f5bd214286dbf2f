package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/voice"
)

// HandleVoiceWebhook tracks recording egress lifecycle events. The platform
// delivers at least once, retries on any non-2xx, and guarantees no ordering;
// transitions are designed so replaying any event lands in the same state.
// Always 200, even for malformed bodies, so a bad event never retries forever.
func HandleVoiceWebhook(c *fiber.Ctx) error {
	event, err := voice.ParseWebhookEvent(c.Body())
	if err != nil {
		var malformed *voice.MalformedEventError
		if errors.As(err, &malformed) {
			log.Warnf("[VoiceWebhook] Dropping malformed event: %s", malformed.Reason)
		} else {
			log.Warnf("[VoiceWebhook] Dropping undecodable event: %v", err)
		}
		return c.JSON(fiber.Map{"success": true})
	}

	recordDelivery(event, string(c.Body()))

	transition := voice.TransitionFor(event)
	if !transition.Apply {
		log.Debugf("[VoiceWebhook] Ignoring event %s (status %s)", event.Event, event.EgressInfo.Status)
		return c.JSON(fiber.Map{"success": true})
	}

	repo := repository.GetGlobalFactory().GetInterviewRepository()
	interview, err := repo.GetByRoomName(event.EgressInfo.RoomName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[VoiceWebhook] Event %s for unknown room %s", event.Event, event.EgressInfo.RoomName)
		} else {
			log.Errorf("[VoiceWebhook] Lookup for room %s failed: %v", event.EgressInfo.RoomName, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}

	fields := map[string]interface{}{
		"recording_status": transition.RecordingStatus,
	}
	if event.EgressInfo.EgressID != "" {
		fields["egress_id"] = event.EgressInfo.EgressID
	}
	if transition.RecordingURL != "" {
		fields["recording_url"] = transition.RecordingURL
	}
	if transition.InterviewFailed && interview.Status == models.InterviewStatusInProgress {
		fields["status"] = models.InterviewStatusFailed
	}
	if err := repo.UpdateFields(interview.ID, fields); err != nil {
		log.Errorf("[VoiceWebhook] Updating interview %d failed: %v", interview.ID, err)
	} else {
		log.Infof("[VoiceWebhook] Interview %d recording -> %s", interview.ID, transition.RecordingStatus)
	}
	return c.JSON(fiber.Map{"success": true})
}

// recordDelivery stores the event for dedup visibility; failures only cost
// the audit row.
func recordDelivery(event *voice.WebhookEvent, payload string) {
	if event.ID == "" {
		return
	}
	_, _, err := repository.GetGlobalFactory().GetWebhookEventRepository().CreateIfNotExists(&models.WebhookEvent{
		Provider:        models.WebhookProviderVoice,
		ProviderEventID: event.ID,
		EventType:       event.Event,
		PayloadJSON:     payload,
	})
	if err != nil {
		log.Errorf("[VoiceWebhook] Recording event %s failed: %v", event.ID, err)
	}
}
