package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "test",
		Type:       JobTypeReportGeneration,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
}

func TestIsRetryableStopsAtMaxRetries(t *testing.T) {
	job := &Job{Status: JobStatusFailed, RetryCount: DefaultMaxRetries, MaxRetries: DefaultMaxRetries}
	assert.False(t, job.IsRetryable())

	job.RetryCount = DefaultMaxRetries - 1
	assert.True(t, job.IsRetryable())
}

func TestReportGenerationPayloadRoundTrip(t *testing.T) {
	payload := ReportGenerationJobPayload{InterviewID: 42}

	decoded, err := ReportGenerationJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), decoded.InterviewID)
}

func TestEmailSendPayloadRoundTrip(t *testing.T) {
	payload := EmailSendJobPayload{To: "a@b.c", Subject: "hi", HTML: "<p>hi</p>"}

	decoded, err := EmailSendJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *decoded)
}
