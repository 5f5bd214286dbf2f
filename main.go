package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/vysahq/vysa-server/app/controllers"
	"github.com/vysahq/vysa-server/app/repository"
	"github.com/vysahq/vysa-server/internal/pkg/cache"
	"github.com/vysahq/vysa-server/internal/pkg/config"
	"github.com/vysahq/vysa-server/internal/pkg/database"
	"github.com/vysahq/vysa-server/internal/pkg/jobqueue"
	"github.com/vysahq/vysa-server/internal/pkg/llm"
	"github.com/vysahq/vysa-server/internal/pkg/mail"
	"github.com/vysahq/vysa-server/internal/pkg/payments"
	"github.com/vysahq/vysa-server/internal/pkg/ragindex"
	"github.com/vysahq/vysa-server/internal/pkg/router"
	"github.com/vysahq/vysa-server/internal/pkg/s3media"
	"github.com/vysahq/vysa-server/internal/pkg/settlement"
	"github.com/vysahq/vysa-server/internal/pkg/sweep"
	"github.com/vysahq/vysa-server/internal/pkg/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := NewApplication(cfg)
	log.Fatal(app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)))
}

func NewApplication(cfg *config.Config) *fiber.App {
	database.SetupDatabase(cfg.DB)
	cache.SetupCache(cfg.Cache)
	repository.InitializeFactory(database.GetDB())

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}
	mailer := mail.NewMailer(cfg.Mail)
	mediaClient, err := s3media.NewClient(cfg.Media)
	if err != nil {
		log.Fatalf("media client: %v", err)
	}

	repos := repository.GetGlobalFactory()
	sweeper := sweep.NewSweeper(
		repos.GetInterviewRepository(),
		repos.GetUserRepository(),
		mailer,
		cfg.PublicDomain,
	)

	manager := jobqueue.InitializeManager(3, jobqueue.Deps{
		Interviews:   repos.GetInterviewRepository(),
		Users:        repos.GetUserRepository(),
		Reporter:     llmClient,
		Mailer:       mailer,
		PublicDomain: cfg.PublicDomain,
	})
	manager.Start()

	controllers.Initialize(&controllers.Services{
		Cfg:        cfg,
		Settlement: settlement.NewEngine(database.GetDB(), llmClient),
		Voice:      voice.NewClient(cfg.Voice),
		Payments:   payments.NewClient(cfg.Payment),
		Media:      mediaClient,
		RagIndex:   ragindex.NewClient(cfg.RagIndex),
		Mailer:     mailer,
		Sweeper:    sweeper,
	})

	if cfg.SweepSchedule != "" {
		scheduler, err := sweep.NewScheduler(cfg.SweepSchedule, sweeper)
		if err != nil {
			log.Fatalf("sweep schedule %q: %v", cfg.SweepSchedule, err)
		}
		scheduler.Start()
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 16 << 20,
	})
	app.Use(recover.New(), logger.New())
	if cfg.IsDev() {
		app.Get("/metrics", monitor.New())
	}

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, cfg)

	return app
}
