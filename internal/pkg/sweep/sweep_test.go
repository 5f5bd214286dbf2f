package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
)

type fakeSender struct {
	sent []string // recipient addresses
	fail bool
}

func (f *fakeSender) Send(_ context.Context, to, _, _ string) error {
	if f.fail {
		return assert.AnError
	}
	f.sent = append(f.sent, to)
	return nil
}

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
		&models.InterviewReport{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{IdentityID: "idn_sweep", Email: "owner@example.com", Name: "Owner", Credits: 0}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedInterview(t *testing.T, db *gorm.DB, userID uint, expiresAt time.Time) *models.Interview {
	t.Helper()
	interview := &models.Interview{
		UserID:    userID,
		RoomName:  "room-" + expiresAt.Format("150405.000000000"),
		Status:    models.InterviewStatusCompleted,
		StartedAt: time.Now().Add(-time.Hour),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, db.Create(interview).Error)
	return interview
}

func TestWarningPassSendsOncePerInterview(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db)
	seedInterview(t, db, user.ID, time.Now().Add(6*time.Hour))

	sender := &fakeSender{}
	sweeper := NewSweeper(repository.NewInterviewRepository(db), repository.NewUserRepository(db), sender, "https://vysa.app")

	result := sweeper.Run(context.Background())
	assert.Equal(t, 1, result.WarningsSent)
	assert.Equal(t, 0, result.InterviewsDeleted)
	assert.Equal(t, []string{"owner@example.com"}, sender.sent)

	// Second run must not warn again.
	result = sweeper.Run(context.Background())
	assert.Equal(t, 0, result.WarningsSent)
	assert.Len(t, sender.sent, 1)
}

func TestWarningFlagOnlyFlipsAfterSuccessfulSend(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db)
	seedInterview(t, db, user.ID, time.Now().Add(6*time.Hour))

	sender := &fakeSender{fail: true}
	sweeper := NewSweeper(repository.NewInterviewRepository(db), repository.NewUserRepository(db), sender, "https://vysa.app")

	result := sweeper.Run(context.Background())
	assert.Equal(t, 0, result.WarningsSent)

	// Send recovers, the warning goes out on the next run.
	sender.fail = false
	result = sweeper.Run(context.Background())
	assert.Equal(t, 1, result.WarningsSent)
}

func TestDeletionPassRemovesExpiredWithChildren(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db)
	expired := seedInterview(t, db, user.ID, time.Now().Add(-time.Hour))
	alive := seedInterview(t, db, user.ID, time.Now().Add(72*time.Hour))

	require.NoError(t, db.Create(&models.TranscriptSegment{
		InterviewID: expired.ID, Seq: 0, Speaker: models.SpeakerAgent, Text: "Good morning",
	}).Error)
	require.NoError(t, db.Create(&models.InterviewReport{InterviewID: expired.ID, Score: 40}).Error)

	sender := &fakeSender{}
	sweeper := NewSweeper(repository.NewInterviewRepository(db), repository.NewUserRepository(db), sender, "https://vysa.app")

	result := sweeper.Run(context.Background())
	assert.Equal(t, 1, result.InterviewsDeleted)

	var interviewCount, segmentCount, reportCount int64
	db.Model(&models.Interview{}).Count(&interviewCount)
	db.Model(&models.TranscriptSegment{}).Count(&segmentCount)
	db.Model(&models.InterviewReport{}).Count(&reportCount)
	assert.Equal(t, int64(1), interviewCount)
	assert.Equal(t, int64(0), segmentCount)
	assert.Equal(t, int64(0), reportCount)

	remaining, err := repository.NewInterviewRepository(db).GetByID(alive.ID)
	require.NoError(t, err)
	assert.Equal(t, alive.ID, remaining.ID)
}
