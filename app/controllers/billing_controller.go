package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/database"
	"github.com/vysahq/vysa-server/internal/pkg/jobqueue"
	"github.com/vysahq/vysa-server/internal/pkg/mail"
	"github.com/vysahq/vysa-server/internal/pkg/payments"
	"github.com/vysahq/vysa-server/internal/pkg/usercontext"
)

// creditPriceCents is the unit price charged per interview credit.
const creditPriceCents = 99

const (
	minPurchaseCredits = 10
	maxPurchaseCredits = 500
)

// paymentEventAllowList is the set of webhook event types that trigger a
// purchase sync. Everything else is acknowledged and dropped.
var paymentEventAllowList = map[string]bool{
	"payment_intent.succeeded":   true,
	"checkout.session.completed": true,
}

type createCheckoutRequest struct {
	Credits int `json:"credits"`
}

// HandleCreateCheckout opens a hosted checkout session for a credit pack.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed JSON body")
	}
	if req.Credits < minPurchaseCredits || req.Credits > maxPurchaseCredits {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "credits out of range")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if user.PaymentCustomerID == "" {
		customer, err := services.Payments.CreateCustomer(c.Context(), user.Email, user.IdentityID)
		if err != nil {
			log.Errorf("[Billing] Customer creation for user %d failed: %v", user.ID, err)
			return errorJSON(c, fiber.StatusBadGateway, "payment_provider_error", "Failed to create payment customer")
		}
		user.PaymentCustomerID = customer.ID
		if err := repo.Update(user); err != nil {
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store payment customer")
		}
	}

	session, err := services.Payments.CreateCheckoutSession(
		c.Context(), user.PaymentCustomerID, req.Credits, int64(req.Credits)*creditPriceCents, "usd")
	if err != nil {
		log.Errorf("[Billing] Checkout session for user %d failed: %v", user.ID, err)
		return errorJSON(c, fiber.StatusBadGateway, "payment_provider_error", "Failed to create checkout session")
	}
	return c.JSON(fiber.Map{"checkout_url": session.URL, "session_id": session.ID})
}

// HandleSyncPurchases reconciles the caller's succeeded payments into local
// credits. Called from the post-checkout redirect; the webhook runs the same
// sync, so whichever arrives first wins and the other is a no-op.
func HandleSyncPurchases(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	applied, err := payments.SyncPurchases(c.Context(), database.GetDB(), services.Payments, user)
	if err != nil {
		log.Errorf("[Billing] Purchase sync for user %d failed: %v", user.ID, err)
		return errorJSON(c, fiber.StatusBadGateway, "payment_provider_error", "Purchase sync failed")
	}
	if applied > 0 {
		enqueueReceipt(user)
	}
	return c.JSON(fiber.Map{"purchases_applied": applied, "credits": user.Credits})
}

type paymentWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			Customer string `json:"customer"`
		} `json:"object"`
	} `json:"data"`
}

// HandlePaymentWebhook processes payment provider events. Bad signatures are
// rejected; everything past the signature check is acknowledged with 200 so
// the provider does not retry events this service chooses to skip.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	if !payments.VerifyWebhookSignature(payload, c.Get("Payment-Signature"), services.Cfg.Payment.WebhookSecret) {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Invalid signature")
	}

	var event paymentWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.Type == "" {
		log.Warnf("[Billing] Undecodable payment webhook: %v", err)
		return c.JSON(fiber.Map{"received": true})
	}
	if !paymentEventAllowList[event.Type] {
		log.Debugf("[Billing] Ignoring payment event type %s", event.Type)
		return c.JSON(fiber.Map{"received": true})
	}

	// Record the delivery; a duplicate event id short-circuits here.
	webhookRepo := repository.GetGlobalFactory().GetWebhookEventRepository()
	created, stored, err := webhookRepo.CreateIfNotExists(&models.WebhookEvent{
		Provider:        models.WebhookProviderPayment,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		log.Errorf("[Billing] Recording payment event %s failed: %v", event.ID, err)
		return c.JSON(fiber.Map{"received": true})
	}
	if !created {
		log.Infof("[Billing] Duplicate payment event %s, skipping", event.ID)
		return c.JSON(fiber.Map{"received": true})
	}

	processErr := ""
	if err := syncCustomerPurchases(c, event.Data.Object.Customer); err != nil {
		processErr = err.Error()
		log.Errorf("[Billing] Processing payment event %s failed: %v", event.ID, err)
	}
	if err := webhookRepo.MarkProcessed(stored.ID, processErr); err != nil {
		log.Errorf("[Billing] Marking payment event %s processed failed: %v", event.ID, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

func syncCustomerPurchases(c *fiber.Ctx, customerID string) error {
	if customerID == "" {
		return nil
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByPaymentCustomerID(customerID)
	if err != nil {
		return err
	}
	applied, err := payments.SyncPurchases(c.Context(), database.GetDB(), services.Payments, user)
	if err != nil {
		return err
	}
	if applied > 0 {
		enqueueReceipt(user)
	}
	return nil
}

// enqueueReceipt queues the purchase confirmation for the most recent
// purchase. user.Credits is expected to be fresh from the sync.
func enqueueReceipt(user *models.User) {
	var purchase models.Purchase
	if err := database.GetDB().
		Where("user_id = ?", user.ID).
		Order("id DESC").First(&purchase).Error; err != nil {
		log.Errorf("[Billing] Loading purchase for receipt (user %d) failed: %v", user.ID, err)
		return
	}

	msg := mail.PurchaseReceiptMessage(user.Name, purchase.Credits, user.Credits)
	payload := jobqueue.EmailSendJobPayload{To: user.Email, Subject: msg.Subject, HTML: msg.HTML}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeEmailSend, payload.ToMap()); err != nil {
		log.Errorf("[Billing] Enqueue receipt for user %d failed: %v", user.ID, err)
	}
}
