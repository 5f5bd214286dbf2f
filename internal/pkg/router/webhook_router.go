package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vysahq/vysa-server/app/controllers"
)

// WebhookRouter serves the provider callback endpoints. Authentication is
// per-provider (HMAC signatures) inside the handlers, not route middleware.
type WebhookRouter struct {
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	webhooks := app.Group("/webhooks")
	webhooks.Post("/voice", controllers.HandleVoiceWebhook)
	webhooks.Post("/payment", controllers.HandlePaymentWebhook)
	webhooks.Post("/identity", controllers.HandleIdentityWebhook)
	webhooks.Post("/ragindex", controllers.HandleRagIndexWebhook)
}
