package repository

import (
	"time"

	"github.com/vysahq/vysa-server/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// interviewRepository implements the InterviewRepository interface
type interviewRepository struct {
	db *gorm.DB
}

// NewInterviewRepository creates a new interview repository instance
func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

func (r *interviewRepository) Create(interview *models.Interview) error {
	return r.db.Create(interview).Error
}

func (r *interviewRepository) GetByID(id uint) (*models.Interview, error) {
	var interview models.Interview
	err := r.db.First(&interview, id).Error
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

func (r *interviewRepository) GetByRoomName(roomName string) (*models.Interview, error) {
	var interview models.Interview
	err := r.db.Where("room_name = ?", roomName).First(&interview).Error
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

func (r *interviewRepository) GetByIDForUser(id, userID uint) (*models.Interview, error) {
	var interview models.Interview
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&interview).Error
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

// GetWithDetails loads an interview with its transcript and report.
func (r *interviewRepository) GetWithDetails(id, userID uint) (*models.Interview, error) {
	var interview models.Interview
	err := r.db.
		Preload("Segments", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Preload("Report").
		Where("id = ? AND user_id = ?", id, userID).
		First(&interview).Error
	if err != nil {
		return nil, err
	}
	return &interview, nil
}

func (r *interviewRepository) ListByUser(userID uint, offset, limit int) ([]models.Interview, error) {
	var interviews []models.Interview
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&interviews).Error
	return interviews, err
}

func (r *interviewRepository) Update(interview *models.Interview) error {
	return r.db.Save(interview).Error
}

func (r *interviewRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Interview{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the interview; segments and the report go with it.
func (r *interviewRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("interview_id = ?", id).Delete(&models.TranscriptSegment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("interview_id = ?", id).Delete(&models.InterviewReport{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Interview{}, id).Error
	})
}

// InsertSegments bulk-creates transcript segments. A re-delivered session
// report hits the (interview_id, seq) unique index and inserts nothing.
func (r *interviewRepository) InsertSegments(segments []models.TranscriptSegment) error {
	if len(segments) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "interview_id"}, {Name: "seq"}},
		DoNothing: true,
	}).Create(&segments).Error
}

func (r *interviewRepository) GetSegments(interviewID uint) ([]models.TranscriptSegment, error) {
	var segments []models.TranscriptSegment
	err := r.db.Where("interview_id = ?", interviewID).Order("seq ASC").Find(&segments).Error
	return segments, err
}

func (r *interviewRepository) CountSegments(interviewID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TranscriptSegment{}).Where("interview_id = ?", interviewID).Count(&count).Error
	return count, err
}

// SaveReport upserts the one-to-one report for an interview.
func (r *interviewRepository) SaveReport(report *models.InterviewReport) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "interview_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score",
			"recommendation",
			"strengths_json",
			"weaknesses_json",
			"red_flags_json",
			"comments_json",
			"summary",
			"updated_at",
		}),
	}).Create(report).Error; err != nil {
		return err
	}

	return r.db.Where("interview_id = ?", report.InterviewID).First(report).Error
}

func (r *interviewRepository) GetReport(interviewID uint) (*models.InterviewReport, error) {
	var report models.InterviewReport
	err := r.db.Where("interview_id = ?", interviewID).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *interviewRepository) DeleteReport(interviewID uint) error {
	return r.db.Where("interview_id = ?", interviewID).Delete(&models.InterviewReport{}).Error
}

// ExpiringSoon returns completed interviews expiring within the window that
// have not been warned yet.
func (r *interviewRepository) ExpiringSoon(within time.Duration) ([]models.Interview, error) {
	now := time.Now()
	var interviews []models.Interview
	err := r.db.
		Where("status = ?", models.InterviewStatusCompleted).
		Where("expires_at > ? AND expires_at <= ?", now, now.Add(within)).
		Where("expiration_warning_sent = ?", false).
		Find(&interviews).Error
	return interviews, err
}

// Expired returns interviews past their expiry that are eligible for deletion.
func (r *interviewRepository) Expired(now time.Time) ([]models.Interview, error) {
	var interviews []models.Interview
	err := r.db.
		Where("status IN ?", []string{models.InterviewStatusCompleted, models.InterviewStatusInProgress}).
		Where("expires_at < ?", now).
		Find(&interviews).Error
	return interviews, err
}

func (r *interviewRepository) MarkWarningSent(id uint) error {
	return r.db.Model(&models.Interview{}).
		Where("id = ?", id).
		Update("expiration_warning_sent", true).Error
}
