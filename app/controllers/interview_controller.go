package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/jobqueue"
	"github.com/vysahq/vysa-server/internal/pkg/usercontext"
)

const (
	minInterviewMinutes = 1
	maxInterviewMinutes = 60
	recordingURLExpiry  = 15 * time.Minute
)

type createInterviewRequest struct {
	VisaType        string `json:"visa_type"`
	Embassy         string `json:"embassy"`
	DurationMinutes int    `json:"duration_minutes"`
}

// HandleCreateInterview starts a practice session: reserves the room, mints
// the voice-platform access token and kicks off the recording egress.
// Credits are only checked here; the actual charge happens at settlement.
func HandleCreateInterview(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed JSON body")
	}
	if req.DurationMinutes < minInterviewMinutes || req.DurationMinutes > maxInterviewMinutes {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request",
			fmt.Sprintf("duration_minutes must be between %d and %d", minInterviewMinutes, maxInterviewMinutes))
	}

	repos := repository.GetGlobalFactory()
	user, err := repos.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}
	if user.Credits < req.DurationMinutes {
		return errorJSON(c, fiber.StatusPaymentRequired, "insufficient_credits",
			fmt.Sprintf("%d credits required, %d available", req.DurationMinutes, user.Credits))
	}

	interview := &models.Interview{
		UserID:         user.ID,
		RoomName:       "vysa-" + uuid.New().String(),
		VisaType:       req.VisaType,
		Embassy:        req.Embassy,
		Status:         models.InterviewStatusInProgress,
		CreditsPlanned: req.DurationMinutes,
		StartedAt:      time.Now(),
		ExpiresAt:      time.Now().Add(services.Cfg.InterviewTTL),
	}
	if err := repos.GetInterviewRepository().Create(interview); err != nil {
		log.Errorf("[Interview] Create for user %d failed: %v", user.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create interview")
	}

	// Token outlives the planned slot so a running conversation is never cut
	// off by token expiry.
	tokenTTL := time.Duration(req.DurationMinutes)*2*time.Minute + 10*time.Minute
	roomToken, err := services.Voice.MintRoomToken(interview.RoomName, user.IdentityID, user.Name, tokenTTL)
	if err != nil {
		log.Errorf("[Interview] Token mint for interview %d failed: %v", interview.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to mint room token")
	}

	// Recording is best effort; the session proceeds without it.
	if egressID, err := services.Voice.StartRecording(c.Context(), interview.RoomName); err != nil {
		log.Errorf("[Interview] Recording start for interview %d failed: %v", interview.ID, err)
	} else if err := repos.GetInterviewRepository().UpdateFields(interview.ID, map[string]interface{}{
		"egress_id": egressID,
	}); err != nil {
		log.Errorf("[Interview] Storing egress id for interview %d failed: %v", interview.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"interview":  interview,
		"room_token": roomToken,
	})
}

// HandleListInterviews returns the caller's interviews, newest first.
func HandleListInterviews(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	interviews, err := repository.GetGlobalFactory().GetInterviewRepository().ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list interviews")
	}
	return c.JSON(fiber.Map{"interviews": interviews})
}

// HandleGetInterview returns one interview with transcript and report.
func HandleGetInterview(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "id")
	if id == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid interview id")
	}

	interview, err := repository.GetGlobalFactory().GetInterviewRepository().GetWithDetails(id, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Interview not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load interview")
	}
	return c.JSON(interview)
}

// HandleDeleteInterview removes an interview and everything hanging off it.
func HandleDeleteInterview(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "id")
	if id == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid interview id")
	}

	repo := repository.GetGlobalFactory().GetInterviewRepository()
	if _, err := repo.GetByIDForUser(id, userCtx.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Interview not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load interview")
	}
	if err := repo.Delete(id); err != nil {
		log.Errorf("[Interview] Delete %d failed: %v", id, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete interview")
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleGetRecording returns a short-lived download URL for a ready recording.
func HandleGetRecording(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "id")
	if id == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid interview id")
	}

	interview, err := repository.GetGlobalFactory().GetInterviewRepository().GetByIDForUser(id, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Interview not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load interview")
	}
	if interview.RecordingStatus != models.RecordingStatusReady || interview.RecordingURL == "" {
		return errorJSON(c, fiber.StatusConflict, "recording_not_ready",
			"Recording status is "+interview.RecordingStatus)
	}

	url, err := services.Media.PresignDownload(c.Context(), interview.RecordingURL, recordingURLExpiry)
	if err != nil {
		log.Errorf("[Interview] Presign for interview %d failed: %v", id, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create download URL")
	}
	return c.JSON(fiber.Map{"url": url, "expires_in": int(recordingURLExpiry.Seconds())})
}

// HandleRegenerateReport queues a fresh analysis of a completed interview.
func HandleRegenerateReport(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "id")
	if id == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid interview id")
	}

	repo := repository.GetGlobalFactory().GetInterviewRepository()
	interview, err := repo.GetByIDForUser(id, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Interview not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load interview")
	}
	if interview.Status != models.InterviewStatusCompleted {
		return errorJSON(c, fiber.StatusConflict, "not_completed", "Only completed interviews have reports")
	}

	// Drop the existing report so the processor regenerates instead of
	// treating the job as a duplicate.
	if err := repo.DeleteReport(id); err != nil {
		log.Errorf("[Interview] Clearing report for interview %d failed: %v", id, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to reset report")
	}

	payload := jobqueue.ReportGenerationJobPayload{InterviewID: id}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeReportGeneration, payload.ToMap()); err != nil {
		log.Errorf("[Interview] Enqueue regenerate for interview %d failed: %v", id, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to queue report generation")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "status": "queued"})
}
