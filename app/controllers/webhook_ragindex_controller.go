package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/ragindex"
)

// Platform status values mapped onto the local document lifecycle.
var indexStatusMap = map[string]string{
	"pending":      models.DocumentStatusPending,
	"partitioning": models.DocumentStatusPartitioning,
	"indexed":      models.DocumentStatusIndexed,
	"failed":       models.DocumentStatusFailed,
}

// HandleRagIndexWebhook updates document indexing state from the platform's
// status callbacks. Unknown documents and statuses are logged and dropped.
func HandleRagIndexWebhook(c *fiber.Ctx) error {
	event, err := ragindex.ParseStatusEvent(c.Body())
	if err != nil {
		log.Warnf("[RagIndexWebhook] %v", err)
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed event")
	}

	status, ok := indexStatusMap[event.Status]
	if !ok {
		log.Warnf("[RagIndexWebhook] Unknown status %q for document %s", event.Status, event.DocumentID)
		return c.JSON(fiber.Map{"received": true})
	}

	repo := repository.GetGlobalFactory().GetDocumentRepository()
	doc, err := repo.GetByExternalID(event.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[RagIndexWebhook] Status for unknown document %s", event.DocumentID)
		} else {
			log.Errorf("[RagIndexWebhook] Lookup for document %s failed: %v", event.DocumentID, err)
		}
		return c.JSON(fiber.Map{"received": true})
	}

	doc.IndexStatus = status
	doc.IndexError = event.Error
	if err := repo.Update(doc); err != nil {
		log.Errorf("[RagIndexWebhook] Updating document %d failed: %v", doc.ID, err)
	} else {
		log.Infof("[RagIndexWebhook] Document %d -> %s", doc.ID, status)
	}
	return c.JSON(fiber.Map{"received": true})
}
