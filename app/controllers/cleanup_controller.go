package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleCleanup runs one expiry sweep on demand. Kept as an endpoint so an
// external scheduler can drive the sweep instead of (or in addition to) the
// in-process cron.
func HandleCleanup(c *fiber.Ctx) error {
	result := services.Sweeper.Run(c.Context())
	return c.JSON(fiber.Map{
		"success":           true,
		"warningsSent":      result.WarningsSent,
		"interviewsDeleted": result.InterviewsDeleted,
	})
}
