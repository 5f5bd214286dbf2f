package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/jobqueue"
	"github.com/vysahq/vysa-server/internal/pkg/mail"
	"github.com/vysahq/vysa-server/internal/pkg/transcript"
)

type sessionReportRequest struct {
	RoomName      string          `json:"roomName"`
	SessionReport json.RawMessage `json:"sessionReport"`
	RecordingInfo *struct {
		ExpectedRecordingURL string `json:"expectedRecordingUrl"`
	} `json:"recordingInfo"`
	EndedBy string `json:"endedBy"`
}

// HandleSessionReport ingests the end-of-session report pushed by the voice
// agent runtime. Transcript storage and settlement happen synchronously so
// the caller's retry covers them; report generation and emails are queued.
// A re-delivery for a settled interview returns the stored outcome without
// touching anything; a completed-but-unsettled one resumes settlement.
func HandleSessionReport(c *fiber.Ctx) error {
	var req sessionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed JSON body")
	}
	if req.RoomName == "" || len(req.SessionReport) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "roomName and sessionReport are required")
	}

	repo := repository.GetGlobalFactory().GetInterviewRepository()
	interview, err := repo.GetByRoomName(req.RoomName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Unknown room")
		}
		log.Errorf("[SessionReport] Lookup for room %s failed: %v", req.RoomName, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Interview lookup failed")
	}

	if interview.Status == models.InterviewStatusCompleted {
		if interview.IsSettled() {
			log.Infof("[SessionReport] Interview %d already completed, returning stored result", interview.ID)
			count, err := repo.CountSegments(interview.ID)
			if err != nil {
				log.Errorf("[SessionReport] Counting segments for interview %d failed: %v", interview.ID, err)
			}
			return c.JSON(fiber.Map{
				"success":            true,
				"interviewId":        interview.ID,
				"transcriptSegments": count,
				"alreadyProcessed":   true,
				"chargeDecision":     interview.ChargeDecision,
				"creditsDeducted":    interview.CreditsDeducted,
			})
		}
		// A previous delivery ingested the transcript but lost settlement.
		// Re-run it from the stored segments instead of re-ingesting.
		log.Infof("[SessionReport] Interview %d completed but unsettled, resuming settlement", interview.ID)
		rows, err := repo.GetSegments(interview.ID)
		if err != nil {
			log.Errorf("[SessionReport] Loading segments for interview %d failed: %v", interview.ID, err)
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load transcript")
		}
		return settleAndRespond(c, interview, storedSegments(rows))
	}

	report, err := transcript.Parse(req.SessionReport)
	if err != nil {
		var malformed *transcript.MalformedPayloadError
		if errors.As(err, &malformed) {
			return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed session report: "+malformed.Reason)
		}
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed session report")
	}
	segments := transcript.Extract(report)

	if err := repo.InsertSegments(segmentRows(interview.ID, segments)); err != nil {
		log.Errorf("[SessionReport] Storing segments for interview %d failed: %v", interview.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store transcript")
	}

	// The agent reports no duration of its own; wall clock from session start
	// to report arrival is the billing-relevant duration.
	now := time.Now()
	duration := int(now.Sub(interview.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	fields := map[string]interface{}{
		"status":           models.InterviewStatusCompleted,
		"ended_at":         now,
		"duration_seconds": duration,
	}
	if req.EndedBy != "" {
		fields["ended_by"] = req.EndedBy
	}
	if req.RecordingInfo != nil && req.RecordingInfo.ExpectedRecordingURL != "" && interview.RecordingStatus == models.RecordingStatusPending {
		// The egress webhook normally drives recording state; the hint here
		// only moves an untouched recording forward optimistically.
		fields["recording_status"] = models.RecordingStatusProcessing
	}
	if err := repo.UpdateFields(interview.ID, fields); err != nil {
		log.Errorf("[SessionReport] Completing interview %d failed: %v", interview.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to complete interview")
	}
	interview.Status = models.InterviewStatusCompleted
	interview.DurationSeconds = duration
	if req.EndedBy != "" {
		interview.EndedBy = req.EndedBy
	}

	return settleAndRespond(c, interview, segments)
}

// settleAndRespond applies the charge decision and queues the follow-ups.
// A settlement error still queues report generation; credits_deducted stays
// NULL, so the next delivery resumes settlement from the stored transcript.
func settleAndRespond(c *fiber.Ctx, interview *models.Interview, segments []transcript.Segment) error {
	outcome, err := services.Settlement.Settle(c.Context(), interview, segments)
	if err != nil {
		log.Errorf("[SessionReport] Settlement for interview %d failed: %v", interview.ID, err)
		enqueueFollowUps(interview, 0, false)
		return c.JSON(fiber.Map{
			"success":            true,
			"interviewId":        interview.ID,
			"transcriptSegments": len(segments),
			"settlement":         "deferred",
		})
	}

	enqueueFollowUps(interview, outcome.NewBalance, outcome.AmountCharged > 0)

	return c.JSON(fiber.Map{
		"success":            true,
		"interviewId":        interview.ID,
		"transcriptSegments": len(segments),
		"charged":            outcome.ShouldCharge,
		"chargeReason":       outcome.Reason,
		"creditsDeducted":    outcome.AmountCharged,
	})
}

// enqueueFollowUps queues report generation and the low-balance nudge.
// Queue failures are logged only; the agent's request must still succeed.
func enqueueFollowUps(interview *models.Interview, newBalance int, wasCharged bool) {
	queue := jobqueue.GetManager().GetQueue()

	payload := jobqueue.ReportGenerationJobPayload{InterviewID: interview.ID}
	if _, err := queue.EnqueueJob(jobqueue.JobTypeReportGeneration, payload.ToMap()); err != nil {
		log.Errorf("[SessionReport] Enqueue report job for interview %d failed: %v", interview.ID, err)
	}

	if !wasCharged || newBalance >= interview.CreditsPlanned {
		return
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(interview.UserID)
	if err != nil {
		log.Errorf("[SessionReport] Low-balance lookup for user %d failed: %v", interview.UserID, err)
		return
	}
	msg := mail.LowBalanceMessage(user.Name, newBalance, services.Cfg.PublicDomain)
	email := jobqueue.EmailSendJobPayload{To: user.Email, Subject: msg.Subject, HTML: msg.HTML}
	if _, err := queue.EnqueueJob(jobqueue.JobTypeEmailSend, email.ToMap()); err != nil {
		log.Errorf("[SessionReport] Enqueue low-balance email for user %d failed: %v", user.ID, err)
	}
}

func storedSegments(rows []models.TranscriptSegment) []transcript.Segment {
	segments := make([]transcript.Segment, 0, len(rows))
	for _, r := range rows {
		segments = append(segments, transcript.Segment{
			Speaker:   r.Speaker,
			Text:      r.Text,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		})
	}
	return segments
}

func segmentRows(interviewID uint, segments []transcript.Segment) []models.TranscriptSegment {
	rows := make([]models.TranscriptSegment, 0, len(segments))
	for i, s := range segments {
		rows = append(rows, models.TranscriptSegment{
			InterviewID: interviewID,
			Seq:         i,
			Speaker:     s.Speaker,
			Text:        s.Text,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
		})
	}
	return rows
}
