package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// Scheduler triggers runs from cron expressions. Jobs run in singleton mode, so a
// tick is skipped while the previous run of the same job is still active.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      int
}

// NewScheduler schedules the runs whose expression is set in cfg.
func NewScheduler(ctx context.Context, cfg config.ScheduleConfig, loc *time.Location, runner *Runner) (*Scheduler, error) {
	s := &Scheduler{scheduler: gocron.NewScheduler(loc)}
	s.scheduler.SingletonModeAll()

	if cfg.Fetch != "" {
		if _, err := s.scheduler.Cron(cfg.Fetch).Tag("fetch").Do(func() {
			status, resp := runner.Fetch(ctx)
			logger.Infof("Scheduled fetch finished: %d %s", status, resp.Status)
		}); err != nil {
			return nil, fmt.Errorf("invalid fetch schedule '%s': %w", cfg.Fetch, err)
		}
		s.jobs++
	}
	if cfg.Ingest != "" {
		if _, err := s.scheduler.Cron(cfg.Ingest).Tag("ingest").Do(func() {
			status, msg := runner.Ingest(ctx)
			logger.Infof("Scheduled ingestion finished: %d %s", status, msg)
		}); err != nil {
			return nil, fmt.Errorf("invalid ingest schedule '%s': %w", cfg.Ingest, err)
		}
		s.jobs++
	}
	return s, nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return s.jobs
}

// Start starts the scheduler in the background. It does nothing without jobs.
func (s *Scheduler) Start() {
	if s.jobs == 0 {
		logger.Infof("Scheduler: no schedules configured.")
		return
	}
	s.scheduler.StartAsync()
	logger.Infof("Scheduler started with %d job(s).", s.jobs)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	if s.jobs > 0 {
		s.scheduler.Stop()
	}
}
