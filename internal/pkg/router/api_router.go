package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/vysahq/vysa-server/app/controllers"
	"github.com/vysahq/vysa-server/internal/pkg/config"
	"github.com/vysahq/vysa-server/internal/pkg/middleware"
)

type ApiRouter struct {
	cfg *config.Config
}

func NewApiRouter(cfg *config.Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))

	// Service-to-service endpoints: the voice-agent runtime pushes session
	// reports, an external scheduler may drive the sweep.
	internal := api.Group("/internal", middleware.InternalTokenMiddleware(h.cfg.InternalToken))
	internal.Post("/session-report", controllers.HandleSessionReport)
	internal.Get("/cleanup", controllers.HandleCleanup)

	v1 := api.Group("/v1", middleware.AuthMiddleware(h.cfg.Identity.JWTSecret))

	v1.Post("/interviews", controllers.HandleCreateInterview)
	v1.Get("/interviews", controllers.HandleListInterviews)
	v1.Get("/interviews/:id", controllers.HandleGetInterview)
	v1.Delete("/interviews/:id", controllers.HandleDeleteInterview)
	v1.Get("/interviews/:id/recording", controllers.HandleGetRecording)
	v1.Post("/interviews/:id/report/regenerate", controllers.HandleRegenerateReport)

	v1.Get("/credits", controllers.HandleGetCredits)
	v1.Post("/billing/checkout", controllers.HandleCreateCheckout)
	v1.Post("/billing/sync", controllers.HandleSyncPurchases)

	v1.Post("/documents", controllers.HandleUploadDocument)
	v1.Get("/documents", controllers.HandleListDocuments)
	v1.Delete("/documents/:id", controllers.HandleDeleteDocument)
}
