package controllers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/usercontext"
)

const maxDocumentBytes = 10 << 20 // 10 MB

// Content types the indexing platform can extract text from.
var allowedDocumentTypes = map[string]bool{
	"application/pdf":    true,
	"text/plain":         true,
	"text/markdown":      true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// HandleUploadDocument pushes a supporting document into the user's retrieval
// partition. The file body goes straight to the indexing platform; only
// metadata is stored locally.
func HandleUploadDocument(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "file is required")
	}
	if fileHeader.Size > maxDocumentBytes {
		return errorJSON(c, fiber.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Sprintf("file exceeds %d bytes", maxDocumentBytes))
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedDocumentTypes[contentType] {
		return errorJSON(c, fiber.StatusUnsupportedMediaType, "unsupported_type",
			"content type "+contentType+" is not indexable")
	}

	repos := repository.GetGlobalFactory()
	user, err := repos.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}
	if user.RagPartition == "" {
		user.RagPartition = fmt.Sprintf("user-%d", user.ID)
		if err := repos.GetUserRepository().Update(user); err != nil {
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to assign partition")
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Unreadable file")
	}
	defer file.Close()
	var body bytes.Buffer
	if _, err := body.ReadFrom(file); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Unreadable file")
	}

	result, err := services.RagIndex.Upload(c.Context(), user.RagPartition, fileHeader.Filename, &body)
	if err != nil {
		log.Errorf("[Documents] Upload for user %d failed: %v", user.ID, err)
		return errorJSON(c, fiber.StatusBadGateway, "index_provider_error", "Document upload failed")
	}

	doc := &models.Document{
		UserID:      user.ID,
		FileName:    fileHeader.Filename,
		FileSize:    fileHeader.Size,
		ContentType: contentType,
		ExternalID:  result.DocumentID,
		IndexStatus: models.DocumentStatusPending,
	}
	if err := repos.GetDocumentRepository().Create(doc); err != nil {
		log.Errorf("[Documents] Storing document row for user %d failed: %v", user.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store document")
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// HandleListDocuments returns the caller's documents.
func HandleListDocuments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	docs, err := repository.GetGlobalFactory().GetDocumentRepository().ListByUser(userCtx.UserID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list documents")
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// HandleDeleteDocument removes a document locally and from the index.
func HandleDeleteDocument(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id := paramUint(c, "id")
	if id == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid document id")
	}

	repo := repository.GetGlobalFactory().GetDocumentRepository()
	doc, err := repo.GetByIDForUser(id, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Document not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load document")
	}

	if doc.ExternalID != "" {
		if err := services.RagIndex.Delete(c.Context(), doc.ExternalID); err != nil {
			log.Errorf("[Documents] Index delete for document %d failed: %v", doc.ID, err)
			return errorJSON(c, fiber.StatusBadGateway, "index_provider_error", "Failed to remove document from index")
		}
	}
	if err := repo.Delete(doc.ID); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete document")
	}
	return c.JSON(fiber.Map{"success": true})
}
