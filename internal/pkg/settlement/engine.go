package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/internal/pkg/llm"
	"github.com/vysahq/vysa-server/internal/pkg/transcript"
)

const (
	// minChargeableSeconds is the floor below which a session is presumed to
	// be a technical failure.
	minChargeableSeconds = 30
	// minChargeableWords is the floor below which no meaningful exchange is
	// presumed to have happened.
	minChargeableWords = 20
	// fallbackMinWords and fallbackMinDurationPct form the local heuristic
	// used when the classifier call fails.
	fallbackMinWords       = 50
	fallbackMinDurationPct = 0.30
)

// Classifier is the external judgment call on ambiguous sessions.
type Classifier interface {
	ClassifyCharge(ctx context.Context, in llm.ChargeInput) (*llm.ChargeJudgment, error)
}

// Engine decides whether a completed interview gets charged and applies the
// decision exactly once against the credit ledger.
type Engine struct {
	db         *gorm.DB
	classifier Classifier
}

// NewEngine creates a settlement engine. classifier may be nil, in which case
// ambiguous sessions fall through to the local heuristic.
func NewEngine(db *gorm.DB, classifier Classifier) *Engine {
	return &Engine{db: db, classifier: classifier}
}

// Decision is the outcome of the charge policy, before application.
type Decision struct {
	ShouldCharge bool
	Reason       string
}

// Outcome reports what settlement actually did.
type Outcome struct {
	Decision
	AlreadySettled bool
	AmountCharged  int
	NewBalance     int
}

// Settle runs the decision policy and applies it. A second call for the same
// interview is a no-op reporting AlreadySettled. All policy failures resolve
// to not-charged; only database errors propagate.
func (e *Engine) Settle(ctx context.Context, interview *models.Interview, segments []transcript.Segment) (*Outcome, error) {
	var decision Decision
	if interview.CreditsPlanned <= 0 {
		decision = Decision{ShouldCharge: false, Reason: "no credits were planned for this session"}
	} else {
		decision = e.safeDecide(ctx, interview, segments)
	}
	return e.apply(interview, decision)
}

// safeDecide shields settlement from any failure inside the decision
// pipeline: uncertainty always resolves to not-charged, never to a charge.
func (e *Engine) safeDecide(ctx context.Context, interview *models.Interview, segments []transcript.Segment) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Settlement] Decision pipeline panicked for interview %d: %v", interview.ID, r)
			decision = Decision{ShouldCharge: false, Reason: fmt.Sprintf("classification failed: %v", r)}
		}
	}()
	return e.Decide(ctx, interview, segments)
}

// Decide evaluates the charge policy in priority order.
func (e *Engine) Decide(ctx context.Context, interview *models.Interview, segments []transcript.Segment) Decision {
	plannedSeconds := interview.CreditsPlanned * 60
	actualSeconds := interview.DurationSeconds
	words := transcript.WordCount(segments)

	// 1. User hung up after getting at least half the planned time: they got
	// practice value regardless of the early termination.
	if interview.EndedBy == models.EndedByUser && plannedSeconds > 0 && actualSeconds*2 >= plannedSeconds {
		return Decision{
			ShouldCharge: true,
			Reason:       fmt.Sprintf("user ended the session after %d of %d planned seconds", actualSeconds, plannedSeconds),
		}
	}

	// 2. Too short to be anything but a technical failure.
	if actualSeconds < minChargeableSeconds {
		return Decision{
			ShouldCharge: false,
			Reason:       fmt.Sprintf("session lasted only %d seconds", actualSeconds),
		}
	}

	// 3. No meaningful exchange.
	if words < minChargeableWords {
		return Decision{
			ShouldCharge: false,
			Reason:       fmt.Sprintf("transcript contains only %d words", words),
		}
	}

	// 4. Ambiguous: ask the classifier.
	if e.classifier != nil {
		judgment, err := e.classifier.ClassifyCharge(ctx, llm.ChargeInput{
			PlannedMinutes: interview.CreditsPlanned,
			ActualSeconds:  actualSeconds,
			EndedBy:        interview.EndedBy,
			WordCount:      words,
			TurnCount:      transcript.TurnCount(segments),
			TranscriptText: joinTranscript(segments),
		})
		if err == nil {
			return Decision{ShouldCharge: judgment.ShouldCharge, Reason: judgment.Reason}
		}
		log.Warnf("[Settlement] Classifier failed for interview %d, using heuristic: %v", interview.ID, err)
	}

	// 5. Local fallback heuristic.
	if plannedSeconds > 0 &&
		float64(actualSeconds) >= fallbackMinDurationPct*float64(plannedSeconds) &&
		words >= fallbackMinWords {
		return Decision{
			ShouldCharge: true,
			Reason:       fmt.Sprintf("heuristic: %d seconds of %d planned with %d words", actualSeconds, plannedSeconds, words),
		}
	}
	return Decision{
		ShouldCharge: false,
		Reason:       fmt.Sprintf("heuristic: insufficient practice (%d seconds, %d words)", actualSeconds, words),
	}
}

// apply writes the decision in one transaction. The conditional update on
// credits_deducted IS NULL is the idempotency guard: a duplicate
// session-report delivery finds the column already set and changes nothing.
func (e *Engine) apply(interview *models.Interview, decision Decision) (*Outcome, error) {
	outcome := &Outcome{Decision: decision}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		deducted := 0
		chargeDecision := models.ChargeDecisionNotCharged
		if decision.ShouldCharge {
			deducted = interview.CreditsPlanned
			chargeDecision = models.ChargeDecisionCharged
		}

		claim := tx.Model(&models.Interview{}).
			Where("id = ? AND credits_deducted IS NULL", interview.ID).
			Updates(map[string]interface{}{
				"credits_deducted": deducted,
				"charge_decision":  chargeDecision,
				"charge_reason":    decision.Reason,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			outcome.AlreadySettled = true
			return nil
		}

		if !decision.ShouldCharge {
			return nil
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", interview.UserID).
			UpdateColumn("credits", gorm.Expr("credits - ?", deducted)).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, interview.UserID).Error; err != nil {
			return err
		}

		entry := models.CreditLedger{
			UserID:      interview.UserID,
			Amount:      -deducted,
			Balance:     user.Credits,
			Type:        models.LedgerTypeDeduction,
			Description: fmt.Sprintf("Interview %s: %s", interview.RoomName, decision.Reason),
			ReferenceID: fmt.Sprintf("interview:%d", interview.ID),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		outcome.AmountCharged = deducted
		outcome.NewBalance = user.Credits
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply settlement for interview %d: %w", interview.ID, err)
	}

	if outcome.AlreadySettled {
		log.Infof("[Settlement] Interview %d already settled, skipping", interview.ID)
	} else {
		log.Infof("[Settlement] Interview %d settled: charge=%v amount=%d reason=%q",
			interview.ID, decision.ShouldCharge, outcome.AmountCharged, decision.Reason)
	}
	return outcome, nil
}

func joinTranscript(segments []transcript.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "%s: %s\n", s.Speaker, s.Text)
	}
	return b.String()
}
