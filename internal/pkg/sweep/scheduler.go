package sweep

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweep on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(schedule string, sweeper *Sweeper) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		sweeper.Run(context.Background())
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("[Sweep] Scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
