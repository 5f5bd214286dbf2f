package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/usercontext"
)

// HandleGetCredits returns the caller's credit balance. An identity the
// lifecycle webhook has not mirrored yet reads as zero, not as an error.
func HandleGetCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"credits": 0})
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load balance")
	}
	return c.JSON(fiber.Map{"credits": user.Credits})
}
