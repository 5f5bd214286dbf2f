package sweep

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/mail"
)

// warningWindow is how far ahead of expiry the deletion warning goes out.
const warningWindow = 24 * time.Hour

// Sender is the slice of the mailer the sweep needs.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Sweeper expires stale interviews: it warns owners a day ahead, then deletes
// rows past their expiry. Recording files are not touched here; the media
// bucket's lifecycle policy removes them independently.
type Sweeper struct {
	interviews   repository.InterviewRepository
	users        repository.UserRepository
	mailer       Sender
	publicDomain string
}

func NewSweeper(interviews repository.InterviewRepository, users repository.UserRepository, mailer Sender, publicDomain string) *Sweeper {
	return &Sweeper{
		interviews:   interviews,
		users:        users,
		mailer:       mailer,
		publicDomain: publicDomain,
	}
}

// Result carries the aggregate counts of one sweep run.
type Result struct {
	WarningsSent      int `json:"warningsSent"`
	InterviewsDeleted int `json:"interviewsDeleted"`
}

// Run executes the warning pass and the deletion pass. Per-row failures are
// logged and skipped so one bad row never stalls the rest of the sweep.
func (s *Sweeper) Run(ctx context.Context) Result {
	result := Result{
		WarningsSent:      s.warningPass(ctx),
		InterviewsDeleted: s.deletionPass(),
	}
	log.Infof("[Sweep] Completed: %d warnings sent, %d interviews deleted",
		result.WarningsSent, result.InterviewsDeleted)
	return result
}

// warningPass notifies owners of interviews expiring within the window. The
// flag only flips after a successful send, so a crash mid-loop can at worst
// duplicate one warning, never silently miss one.
func (s *Sweeper) warningPass(ctx context.Context) int {
	expiring, err := s.interviews.ExpiringSoon(warningWindow)
	if err != nil {
		log.Errorf("[Sweep] Failed to query expiring interviews: %v", err)
		return 0
	}

	sent := 0
	for _, interview := range expiring {
		if err := s.warnOwner(ctx, &interview); err != nil {
			log.Errorf("[Sweep] Warning for interview %d failed: %v", interview.ID, err)
			continue
		}
		sent++
	}
	return sent
}

func (s *Sweeper) warnOwner(ctx context.Context, interview *models.Interview) error {
	user, err := s.users.GetByID(interview.UserID)
	if err != nil {
		return err
	}

	msg := mail.DeletionWarningMessage(user.Name, interview.ID, interview.ExpiresAt, s.publicDomain)
	if err := s.mailer.Send(ctx, user.Email, msg.Subject, msg.HTML); err != nil {
		return err
	}
	return s.interviews.MarkWarningSent(interview.ID)
}

// deletionPass removes interviews past expiry; children cascade with them.
func (s *Sweeper) deletionPass() int {
	expired, err := s.interviews.Expired(time.Now())
	if err != nil {
		log.Errorf("[Sweep] Failed to query expired interviews: %v", err)
		return 0
	}

	deleted := 0
	for _, interview := range expired {
		if err := s.interviews.Delete(interview.ID); err != nil {
			log.Errorf("[Sweep] Deleting interview %d failed: %v", interview.ID, err)
			continue
		}
		deleted++
	}
	return deleted
}
