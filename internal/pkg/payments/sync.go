package payments

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vysahq/vysa-server/app/models"
)

// IntentLister is the slice of the payment client the sync needs.
type IntentLister interface {
	ListSucceededPaymentIntents(ctx context.Context, customerID string) ([]PaymentIntent, error)
}

// SyncPurchases reconciles a user's succeeded payment intents into local
// Purchase rows and credits. It is called from both the post-checkout
// redirect and the payment webhook, possibly concurrently for the same
// customer; the unique payment-intent constraint checked inside the
// transaction is what prevents double-crediting. Returns how many new
// purchases were applied.
func SyncPurchases(ctx context.Context, db *gorm.DB, client IntentLister, user *models.User) (int, error) {
	if user.PaymentCustomerID == "" {
		return 0, nil
	}

	intents, err := client.ListSucceededPaymentIntents(ctx, user.PaymentCustomerID)
	if err != nil {
		return 0, fmt.Errorf("list payment intents for customer %s: %w", user.PaymentCustomerID, err)
	}

	applied := 0
	for _, intent := range intents {
		credits := intent.Credits()
		if credits <= 0 {
			log.Warnf("[Payments] Intent %s has no credits metadata, skipping", intent.ID)
			continue
		}

		created, err := applyIntent(db, user, intent, credits)
		if err != nil {
			return applied, fmt.Errorf("apply payment intent %s: %w", intent.ID, err)
		}
		if created {
			applied++
			log.Infof("[Payments] Credited %d credits to user %d for intent %s", credits, user.ID, intent.ID)
		}
	}
	return applied, nil
}

// applyIntent creates the Purchase, the balance increment and the ledger row
// in one transaction. The OnConflict DoNothing insert claims the intent: if
// another call site already recorded it, RowsAffected is zero and the
// transaction applies nothing.
func applyIntent(db *gorm.DB, user *models.User, intent PaymentIntent, credits int) (bool, error) {
	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		purchase := models.Purchase{
			UserID:          user.ID,
			PaymentIntentID: intent.ID,
			Credits:         credits,
			AmountCents:     intent.AmountCents,
			Currency:        intent.Currency,
			Status:          models.PurchaseStatusSucceeded,
		}
		claim := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_intent_id"}},
			DoNothing: true,
		}).Create(&purchase)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			UpdateColumn("credits", gorm.Expr("credits + ?", credits)).Error; err != nil {
			return err
		}

		var reloaded models.User
		if err := tx.First(&reloaded, user.ID).Error; err != nil {
			return err
		}

		entry := models.CreditLedger{
			UserID:      user.ID,
			Amount:      credits,
			Balance:     reloaded.Credits,
			Type:        models.LedgerTypePurchase,
			Description: fmt.Sprintf("Purchased %d credits", credits),
			ReferenceID: fmt.Sprintf("purchase:%s", intent.ID),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		created = true
		user.Credits = reloaded.Credits
		return nil
	})
	return created, err
}
