package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vysahq/vysa-server/internal/pkg/config"
	"github.com/vysahq/vysa-server/internal/pkg/mail"
	"github.com/vysahq/vysa-server/internal/pkg/payments"
	"github.com/vysahq/vysa-server/internal/pkg/ragindex"
	"github.com/vysahq/vysa-server/internal/pkg/s3media"
	"github.com/vysahq/vysa-server/internal/pkg/settlement"
	"github.com/vysahq/vysa-server/internal/pkg/sweep"
	"github.com/vysahq/vysa-server/internal/pkg/voice"
)

// Services bundles the external-facing clients the controllers call. Wired
// once from main; nil members disable the features that need them.
type Services struct {
	Cfg        *config.Config
	Settlement *settlement.Engine
	Voice      *voice.Client
	Payments   *payments.Client
	Media      *s3media.Client
	RagIndex   *ragindex.Client
	Mailer     *mail.Mailer
	Sweeper    *sweep.Sweeper
}

var services *Services

// Initialize installs the service bundle. Must run before routes are served.
func Initialize(s *Services) {
	services = s
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// paramUint parses a numeric path parameter, returning 0 when absent or bad.
func paramUint(c *fiber.Ctx, name string) uint {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}
