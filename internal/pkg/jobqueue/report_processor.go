package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/llm"
	"github.com/vysahq/vysa-server/internal/pkg/mail"
)

// Reporter produces the structured interview analysis.
type Reporter interface {
	GenerateReport(ctx context.Context, in llm.ReportInput) (*llm.ReportResult, error)
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Deps are the collaborators the job processors need.
type Deps struct {
	Interviews   repository.InterviewRepository
	Users        repository.UserRepository
	Reporter     Reporter
	Mailer       Sender
	PublicDomain string
}

const reportTimeout = 2 * time.Minute

// processReportGenerationJob generates and stores the report for one
// interview, then queues the report-ready email.
func (q *Queue) processReportGenerationJob(ctx context.Context, job *Job) error {
	payload, err := ReportGenerationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid report payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	email, err := q.deps.generateReport(ctx, payload.InterviewID)
	if err != nil {
		return err
	}
	if email == nil {
		return nil
	}
	_, err = q.EnqueueJob(JobTypeEmailSend, email.ToMap())
	return err
}

// generateReport runs the analysis for one interview. It returns the
// report-ready email to queue, or nil when a report already exists so a
// retried or re-delivered job never produces a second email.
func (d *Deps) generateReport(ctx context.Context, interviewID uint) (*EmailSendJobPayload, error) {
	if existing, err := d.Interviews.GetReport(interviewID); err == nil && existing != nil {
		log.Infof("[ReportProcessor] Interview %d already has a report, skipping", interviewID)
		return nil, nil
	}

	interview, err := d.Interviews.GetByID(interviewID)
	if err != nil {
		return nil, fmt.Errorf("interview %d not found: %w", interviewID, err)
	}

	segments, err := d.Interviews.GetSegments(interviewID)
	if err != nil {
		return nil, fmt.Errorf("loading segments for interview %d: %w", interviewID, err)
	}

	result, err := d.Reporter.GenerateReport(ctx, llm.ReportInput{
		VisaType:        interview.VisaType,
		Embassy:         interview.Embassy,
		DurationSeconds: interview.DurationSeconds,
		Segments:        reportSegments(segments),
	})
	if err != nil {
		return nil, fmt.Errorf("report generation for interview %d: %w", interviewID, err)
	}

	report := &models.InterviewReport{
		InterviewID:    interviewID,
		Score:          result.Score,
		Recommendation: result.Recommendation,
		Summary:        result.Summary,
	}
	if err := report.SetLists(result.Strengths, result.Weaknesses, result.RedFlags, reportComments(result.Comments)); err != nil {
		return nil, fmt.Errorf("encoding report lists: %w", err)
	}
	if err := d.Interviews.SaveReport(report); err != nil {
		return nil, fmt.Errorf("saving report for interview %d: %w", interviewID, err)
	}
	log.Infof("[ReportProcessor] Stored report for interview %d (score=%d)", interviewID, result.Score)

	user, err := d.Users.GetByID(interview.UserID)
	if err != nil {
		// The report is stored; a missing owner only costs the notification.
		log.Errorf("[ReportProcessor] Owner of interview %d not found: %v", interviewID, err)
		return nil, nil
	}

	msg := mail.ReportReadyMessage(user.Name, interview.ID, result.Score, d.PublicDomain)
	return &EmailSendJobPayload{To: user.Email, Subject: msg.Subject, HTML: msg.HTML}, nil
}

func reportSegments(segments []models.TranscriptSegment) []llm.ReportSegment {
	out := make([]llm.ReportSegment, 0, len(segments))
	for _, s := range segments {
		out = append(out, llm.ReportSegment{
			Speaker:   s.Speaker,
			Text:      s.Text,
			StartTime: s.StartTime,
		})
	}
	return out
}

func reportComments(comments []llm.ReportComment) []models.ReportComment {
	out := make([]models.ReportComment, 0, len(comments))
	for _, c := range comments {
		out = append(out, models.ReportComment{AtSeconds: c.AtSeconds, Comment: c.Comment})
	}
	return out
}
