package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/identity"
)

// HandleIdentityWebhook mirrors identity-provider user lifecycle events into
// the local user table.
func HandleIdentityWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	if !identity.VerifyWebhookSignature(
		payload,
		c.Get("webhook-id"),
		c.Get("webhook-timestamp"),
		c.Get("webhook-signature"),
		services.Cfg.Identity.WebhookSecret,
	) {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Invalid signature")
	}

	event, err := identity.ParseUserEvent(payload)
	if err != nil {
		var malformed *identity.MalformedEventError
		if errors.As(err, &malformed) {
			log.Warnf("[IdentityWebhook] Malformed event: %s", malformed.Reason)
		}
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed event")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	switch event.Type {
	case identity.EventUserCreated, identity.EventUserUpdated:
		user := &models.User{
			IdentityID: event.IdentityID,
			Email:      event.Email,
			Name:       event.Name,
			Role:       models.ROLE_USER,
		}
		if err := user.Validate(); err != nil {
			log.Warnf("[IdentityWebhook] Rejecting invalid user payload for %s: %v", event.IdentityID, err)
			return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid user payload")
		}
		if err := repo.Upsert(user); err != nil {
			log.Errorf("[IdentityWebhook] Upsert for %s failed: %v", event.IdentityID, err)
		} else {
			log.Infof("[IdentityWebhook] Mirrored %s for %s", event.Type, event.IdentityID)
		}

	case identity.EventUserDeleted:
		user, err := repo.GetByIdentityID(event.IdentityID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("[IdentityWebhook] Lookup for %s failed: %v", event.IdentityID, err)
			}
			break
		}
		if err := repo.Delete(user.ID); err != nil {
			log.Errorf("[IdentityWebhook] Delete for %s failed: %v", event.IdentityID, err)
		} else {
			log.Infof("[IdentityWebhook] Removed user %d for deleted identity %s", user.ID, event.IdentityID)
		}

	default:
		log.Debugf("[IdentityWebhook] Ignoring event type %s", event.Type)
	}

	return c.JSON(fiber.Map{"received": true})
}
