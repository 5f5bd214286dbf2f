package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const emailTimeout = 30 * time.Second

// processEmailSendJob delivers one pre-rendered email.
func (q *Queue) processEmailSendJob(ctx context.Context, job *Job) error {
	payload, err := EmailSendJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}
	if payload.To == "" {
		// Nothing to deliver; drop rather than retry forever.
		log.Warnf("[EmailProcessor] Job %s has no recipient, dropping", job.ID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()

	if err := q.deps.Mailer.Send(ctx, payload.To, payload.Subject, payload.HTML); err != nil {
		return fmt.Errorf("sending email to %s: %w", payload.To, err)
	}
	log.Infof("[EmailProcessor] Sent %q to %s", payload.Subject, payload.To)
	return nil
}
