package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/internal/pkg/cache"
	"github.com/vysahq/vysa-server/internal/pkg/config"
	"github.com/vysahq/vysa-server/internal/pkg/jobqueue"
	"github.com/vysahq/vysa-server/internal/pkg/settlement"
)

var (
	queueRedisOnce sync.Once
	queueRedis     *miniredis.Miniredis
)

// setupJobQueue backs the job queue with an in-process redis so tests can
// observe what the handlers enqueue.
func setupJobQueue(t *testing.T) *jobqueue.Queue {
	t.Helper()
	queueRedisOnce.Do(func() {
		var err error
		queueRedis, err = miniredis.Run()
		if err != nil {
			t.Fatalf("start miniredis: %v", err)
		}
		cache.SetupCache(config.CacheConfig{Host: queueRedis.Host(), Port: queueRedis.Port()})
		jobqueue.InitializeManager(0, jobqueue.Deps{})
	})
	queueRedis.FlushAll()
	return jobqueue.GetManager().GetQueue()
}

func TestSessionReportMissingFields400(t *testing.T) {
	setupControllerDB(t)

	app := fiber.New()
	app.Post("/api/internal/session-report", HandleSessionReport)

	assert.Equal(t, fiber.StatusBadRequest,
		postJSON(t, app, "/api/internal/session-report", `{"roomName": ""}`))
	assert.Equal(t, fiber.StatusBadRequest,
		postJSON(t, app, "/api/internal/session-report", `{"roomName": "room-x"}`))
}

func TestSessionReportUnknownRoom404(t *testing.T) {
	setupControllerDB(t)

	app := fiber.New()
	app.Post("/api/internal/session-report", HandleSessionReport)

	body := `{"roomName": "room-unknown", "sessionReport": {"history": {"items": []}}}`
	assert.Equal(t, fiber.StatusNotFound, postJSON(t, app, "/api/internal/session-report", body))
}

func TestSessionReportRedeliveryReturnsStoredResult(t *testing.T) {
	db := setupControllerDB(t)
	interview := seedRoom(t, db, "room-done")

	deducted := 10
	require.NoError(t, db.Model(interview).Updates(map[string]interface{}{
		"status":           models.InterviewStatusCompleted,
		"ended_at":         time.Now(),
		"charge_decision":  models.ChargeDecisionCharged,
		"credits_deducted": deducted,
	}).Error)

	app := fiber.New()
	app.Post("/api/internal/session-report", HandleSessionReport)

	body := fmt.Sprintf(`{"roomName": %q, "sessionReport": {"history": {"items": []}}}`, interview.RoomName)
	req := httptest.NewRequest("POST", "/api/internal/session-report", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded struct {
		Success          bool   `json:"success"`
		InterviewID      uint   `json:"interviewId"`
		AlreadyProcessed bool   `json:"alreadyProcessed"`
		ChargeDecision   string `json:"chargeDecision"`
		CreditsDeducted  *int   `json:"creditsDeducted"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, interview.ID, decoded.InterviewID)
	assert.True(t, decoded.AlreadyProcessed)
	assert.Equal(t, models.ChargeDecisionCharged, decoded.ChargeDecision)
	require.NotNil(t, decoded.CreditsDeducted)
	assert.Equal(t, deducted, *decoded.CreditsDeducted)

	// No segments were ingested on the re-delivery.
	var count int64
	db.Model(&models.TranscriptSegment{}).Where("interview_id = ?", interview.ID).Count(&count)
	assert.Zero(t, count)
}

func TestSessionReportIngestsAndBindsRecordingHint(t *testing.T) {
	db := setupControllerDB(t)
	queue := setupJobQueue(t)
	interview := seedRoom(t, db, "room-fresh")

	Initialize(&Services{
		Cfg:        &config.Config{PublicDomain: "http://localhost:4000"},
		Settlement: settlement.NewEngine(db, nil),
	})

	app := fiber.New()
	app.Post("/api/internal/session-report", HandleSessionReport)

	body := fmt.Sprintf(`{
		"roomName": %q,
		"sessionReport": {"history": {"items": [
			{"type": "message", "role": "assistant", "content": ["Good morning, please state your purpose."]},
			{"type": "message", "role": "user", "content": ["Good morning, officer."]}
		]}},
		"recordingInfo": {"expectedRecordingUrl": "s3://bucket/room-fresh.mp4"},
		"endedBy": "user"
	}`, interview.RoomName)
	req := httptest.NewRequest("POST", "/api/internal/session-report", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded struct {
		Success            bool  `json:"success"`
		InterviewID        uint  `json:"interviewId"`
		TranscriptSegments int   `json:"transcriptSegments"`
		Charged            *bool `json:"charged"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, interview.ID, decoded.InterviewID)
	assert.Equal(t, 2, decoded.TranscriptSegments)
	require.NotNil(t, decoded.Charged)

	var updated models.Interview
	require.NoError(t, db.First(&updated, interview.ID).Error)
	assert.Equal(t, models.InterviewStatusCompleted, updated.Status)
	// The recording hint moves an untouched recording forward optimistically.
	assert.Equal(t, models.RecordingStatusProcessing, updated.RecordingStatus)
	assert.Equal(t, models.EndedByUser, updated.EndedBy)

	// Report generation was queued.
	size, err := queue.GetQueueSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestSessionReportResumesUnsettledInterview(t *testing.T) {
	db := setupControllerDB(t)
	queue := setupJobQueue(t)
	interview := seedRoom(t, db, "room-resume")

	// Completed by an earlier delivery that lost settlement: transcript is
	// stored, credits_deducted is still NULL.
	require.NoError(t, db.Model(interview).Updates(map[string]interface{}{
		"status":           models.InterviewStatusCompleted,
		"ended_at":         time.Now(),
		"duration_seconds": 10,
	}).Error)
	require.NoError(t, db.Create(&models.TranscriptSegment{
		InterviewID: interview.ID,
		Seq:         0,
		Speaker:     models.SpeakerAgent,
		Text:        "Good morning.",
	}).Error)

	Initialize(&Services{
		Cfg:        &config.Config{},
		Settlement: settlement.NewEngine(db, nil),
	})

	app := fiber.New()
	app.Post("/api/internal/session-report", HandleSessionReport)

	body := fmt.Sprintf(`{"roomName": %q, "sessionReport": {"history": {"items": []}}}`, interview.RoomName)
	req := httptest.NewRequest("POST", "/api/internal/session-report", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded struct {
		Success            bool  `json:"success"`
		TranscriptSegments int   `json:"transcriptSegments"`
		Charged            *bool `json:"charged"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, 1, decoded.TranscriptSegments)
	require.NotNil(t, decoded.Charged)
	assert.False(t, *decoded.Charged)

	// Settlement ran this time.
	var updated models.Interview
	require.NoError(t, db.First(&updated, interview.ID).Error)
	require.NotNil(t, updated.CreditsDeducted)
	assert.Equal(t, 0, *updated.CreditsDeducted)
	assert.Equal(t, models.ChargeDecisionNotCharged, updated.ChargeDecision)

	// The stored transcript was not re-ingested.
	var count int64
	db.Model(&models.TranscriptSegment{}).Where("interview_id = ?", interview.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	size, err := queue.GetQueueSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestSessionReportSettlementFailureStillQueuesReport(t *testing.T) {
	db := setupControllerDB(t)
	queue := setupJobQueue(t)
	interview := seedRoom(t, db, "room-deferred")
	require.NoError(t, db.Model(interview).Update("credits_planned", 5).Error)

	Initialize(&Services{
		Cfg:        &config.Config{},
		Settlement: settlement.NewEngine(db, nil),
	})

	// Losing the ledger table makes the charge transaction fail after the
	// transcript is stored.
	require.NoError(t, db.Migrator().DropTable(&models.CreditLedger{}))

	app := fiber.New()
	app.Post("/api/internal/session-report", HandleSessionReport)

	body := fmt.Sprintf(`{
		"roomName": %q,
		"sessionReport": {"history": {"items": [
			{"type": "message", "role": "user", "content": ["I am here for a student visa interview."]}
		]}},
		"endedBy": "user"
	}`, interview.RoomName)
	req := httptest.NewRequest("POST", "/api/internal/session-report", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded struct {
		Success     bool   `json:"success"`
		InterviewID uint   `json:"interviewId"`
		Settlement  string `json:"settlement"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, interview.ID, decoded.InterviewID)
	assert.Equal(t, "deferred", decoded.Settlement)

	// Report generation is not lost to the settlement failure.
	size, err := queue.GetQueueSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	// The failed charge rolled back, so the next delivery resumes settlement.
	var updated models.Interview
	require.NoError(t, db.First(&updated, interview.ID).Error)
	assert.Equal(t, models.InterviewStatusCompleted, updated.Status)
	assert.Nil(t, updated.CreditsDeducted)
}
