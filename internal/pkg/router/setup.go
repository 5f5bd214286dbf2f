package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vysahq/vysa-server/internal/pkg/config"
)

// Router installs one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers all route groups.
func InstallRouter(app *fiber.App, cfg *config.Config) {
	setup(app, NewApiRouter(cfg), NewWebhookRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
