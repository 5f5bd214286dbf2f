package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/internal/pkg/llm"
	"github.com/vysahq/vysa-server/internal/pkg/transcript"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Interview{},
		&models.TranscriptSegment{},
		&models.CreditLedger{},
	))
	return db
}

type fakeClassifier struct {
	judgment *llm.ChargeJudgment
	err      error
	calls    int
}

func (f *fakeClassifier) ClassifyCharge(ctx context.Context, in llm.ChargeInput) (*llm.ChargeJudgment, error) {
	f.calls++
	return f.judgment, f.err
}

// segmentsWithWords builds a transcript with exactly n words split across two
// speakers.
func segmentsWithWords(n int) []transcript.Segment {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	half := n / 2
	return []transcript.Segment{
		{Speaker: "agent", Text: strings.Join(words[:half], " ")},
		{Speaker: "user", Text: strings.Join(words[half:], " ")},
	}
}

func ledgerSum(t *testing.T, db *gorm.DB, userID uint) int {
	t.Helper()
	var sum int
	require.NoError(t, db.Model(&models.CreditLedger{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error)
	return sum
}

func TestDecide_UserEndedAtHalfPlannedCharges(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)
	interview := &models.Interview{
		CreditsPlanned:  10,
		DurationSeconds: 300, // exactly 50% of 600s
		EndedBy:         models.EndedByUser,
	}

	// Charges regardless of transcript content.
	d := engine.Decide(context.Background(), interview, nil)
	assert.True(t, d.ShouldCharge)
}

func TestDecide_UnderThirtySecondsNeverCharges(t *testing.T) {
	classifier := &fakeClassifier{judgment: &llm.ChargeJudgment{ShouldCharge: true, Reason: "x"}}
	engine := NewEngine(openTestDB(t), classifier)
	interview := &models.Interview{
		CreditsPlanned:  5,
		DurationSeconds: 29,
		EndedBy:         models.EndedByAgent,
	}

	d := engine.Decide(context.Background(), interview, segmentsWithWords(400))
	assert.False(t, d.ShouldCharge)
	assert.Zero(t, classifier.calls)
}

func TestDecide_FewWordsNeverCharges(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)
	interview := &models.Interview{
		CreditsPlanned:  5,
		DurationSeconds: 200,
		EndedBy:         models.EndedByAgent,
	}

	d := engine.Decide(context.Background(), interview, segmentsWithWords(19))
	assert.False(t, d.ShouldCharge)
	assert.Contains(t, d.Reason, "19 words")
}

func TestDecide_DelegatesToClassifier(t *testing.T) {
	classifier := &fakeClassifier{judgment: &llm.ChargeJudgment{ShouldCharge: true, Reason: "genuine practice", Confidence: 0.95}}
	engine := NewEngine(openTestDB(t), classifier)
	interview := &models.Interview{
		CreditsPlanned:  10,
		DurationSeconds: 120, // 20% of planned, user-ended rule does not apply
		EndedBy:         models.EndedByUser,
	}

	d := engine.Decide(context.Background(), interview, segmentsWithWords(100))
	assert.True(t, d.ShouldCharge)
	assert.Equal(t, "genuine practice", d.Reason)
	assert.Equal(t, 1, classifier.calls)
}

func TestDecide_ClassifierFailureFallsBackToHeuristic(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("network down")}
	engine := NewEngine(openTestDB(t), classifier)

	// 40% of planned with plenty of words: heuristic charges.
	charged := engine.Decide(context.Background(), &models.Interview{
		CreditsPlanned:  10,
		DurationSeconds: 240,
		EndedBy:         models.EndedByAgent,
	}, segmentsWithWords(80))
	assert.True(t, charged.ShouldCharge)

	// Enough words but only 20% of planned: heuristic does not charge.
	free := engine.Decide(context.Background(), &models.Interview{
		CreditsPlanned:  10,
		DurationSeconds: 120,
		EndedBy:         models.EndedByAgent,
	}, segmentsWithWords(80))
	assert.False(t, free.ShouldCharge)
}

func TestSettle_ChargeAppliesOnceAndKeepsLedgerInvariant(t *testing.T) {
	db := openTestDB(t)
	user := models.User{IdentityID: "idp_1", Credits: 10}
	require.NoError(t, db.Create(&user).Error)
	interview := models.Interview{
		UserID:          user.ID,
		RoomName:        "vysa-settle-1",
		CreditsPlanned:  5,
		DurationSeconds: 240,
		EndedBy:         models.EndedByUser,
	}
	require.NoError(t, db.Create(&interview).Error)

	engine := NewEngine(db, nil)
	outcome, err := engine.Settle(context.Background(), &interview, segmentsWithWords(100))
	require.NoError(t, err)
	assert.True(t, outcome.ShouldCharge)
	assert.False(t, outcome.AlreadySettled)
	assert.Equal(t, 5, outcome.AmountCharged)
	assert.Equal(t, 5, outcome.NewBalance)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 5, reloaded.Credits)
	assert.Equal(t, reloaded.Credits-10, ledgerSum(t, db, user.ID))

	var settled models.Interview
	require.NoError(t, db.First(&settled, interview.ID).Error)
	require.NotNil(t, settled.CreditsDeducted)
	assert.Equal(t, 5, *settled.CreditsDeducted)
	assert.Equal(t, models.ChargeDecisionCharged, settled.ChargeDecision)

	// A duplicate delivery settles again: balance and ledger must not move.
	again, err := engine.Settle(context.Background(), &interview, segmentsWithWords(100))
	require.NoError(t, err)
	assert.True(t, again.AlreadySettled)

	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 5, reloaded.Credits)

	var entries int64
	require.NoError(t, db.Model(&models.CreditLedger{}).Where("user_id = ?", user.ID).Count(&entries).Error)
	assert.EqualValues(t, 1, entries)
}

func TestSettle_NotChargedLeavesBalanceUntouched(t *testing.T) {
	db := openTestDB(t)
	user := models.User{IdentityID: "idp_2", Credits: 10}
	require.NoError(t, db.Create(&user).Error)
	interview := models.Interview{
		UserID:          user.ID,
		RoomName:        "vysa-settle-2",
		CreditsPlanned:  5,
		DurationSeconds: 12,
		EndedBy:         models.EndedByAgent,
	}
	require.NoError(t, db.Create(&interview).Error)

	engine := NewEngine(db, nil)
	outcome, err := engine.Settle(context.Background(), &interview, nil)
	require.NoError(t, err)
	assert.False(t, outcome.ShouldCharge)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 10, reloaded.Credits)

	var settled models.Interview
	require.NoError(t, db.First(&settled, interview.ID).Error)
	require.NotNil(t, settled.CreditsDeducted)
	assert.Equal(t, 0, *settled.CreditsDeducted)
	assert.Equal(t, models.ChargeDecisionNotCharged, settled.ChargeDecision)
	assert.Equal(t, 0, ledgerSum(t, db, user.ID))
}
