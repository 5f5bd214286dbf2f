package repository

import (
	"github.com/vysahq/vysa-server/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIdentityID(identityID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("identity_id = ?", identityID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByPaymentCustomerID(customerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("payment_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user or refreshes profile fields on identity conflict.
// The credit balance is deliberately not part of the update set.
func (r *userRepository) Upsert(user *models.User) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"name",
			"updated_at",
		}),
	}).Create(user).Error; err != nil {
		return err
	}

	return r.db.Where("identity_id = ?", user.IdentityID).First(user).Error
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete removes the user and all dependent rows. The user row goes out hard
// so the identity can be mirrored again if the provider ever re-sends it.
func (r *userRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var interviewIDs []uint
		if err := tx.Model(&models.Interview{}).Where("user_id = ?", id).Pluck("id", &interviewIDs).Error; err != nil {
			return err
		}
		if len(interviewIDs) > 0 {
			if err := tx.Where("interview_id IN ?", interviewIDs).Delete(&models.TranscriptSegment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("interview_id IN ?", interviewIDs).Delete(&models.InterviewReport{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", id).Delete(&models.Interview{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.CreditLedger{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Purchase{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Unscoped().Delete(&models.Document{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.User{}, id).Error
	})
}
