package repository

import (
	"time"

	"github.com/vysahq/vysa-server/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByIdentityID(identityID string) (*models.User, error)
	GetByPaymentCustomerID(customerID string) (*models.User, error)
	Upsert(user *models.User) error
	Update(user *models.User) error
	Delete(id uint) error
}

// InterviewRepository defines the interface for interview-related database operations
type InterviewRepository interface {
	Create(interview *models.Interview) error
	GetByID(id uint) (*models.Interview, error)
	GetByRoomName(roomName string) (*models.Interview, error)
	GetByIDForUser(id, userID uint) (*models.Interview, error)
	GetWithDetails(id, userID uint) (*models.Interview, error)
	ListByUser(userID uint, offset, limit int) ([]models.Interview, error)
	Update(interview *models.Interview) error
	UpdateFields(id uint, fields map[string]interface{}) error
	Delete(id uint) error

	InsertSegments(segments []models.TranscriptSegment) error
	GetSegments(interviewID uint) ([]models.TranscriptSegment, error)
	CountSegments(interviewID uint) (int64, error)

	SaveReport(report *models.InterviewReport) error
	GetReport(interviewID uint) (*models.InterviewReport, error)
	DeleteReport(interviewID uint) error

	ExpiringSoon(within time.Duration) ([]models.Interview, error)
	Expired(now time.Time) ([]models.Interview, error)
	MarkWarningSent(id uint) error
}

// DocumentRepository defines the interface for document-related database operations
type DocumentRepository interface {
	Create(doc *models.Document) error
	GetByID(id uint) (*models.Document, error)
	GetByIDForUser(id, userID uint) (*models.Document, error)
	GetByExternalID(externalID string) (*models.Document, error)
	ListByUser(userID uint) ([]models.Document, error)
	Update(doc *models.Document) error
	Delete(id uint) error
}

// WebhookEventRepository stores provider webhook deliveries idempotently
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}
