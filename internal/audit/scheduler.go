package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const runTimeout = 30 * time.Second

// Scheduler runs the auditor on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	auditor *Auditor
	logger  *slog.Logger
}

// NewScheduler creates a scheduler whose jobs recover from panics.
func NewScheduler(auditor *Auditor, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		auditor: auditor,
		logger:  logger,
	}
}

// Start registers the audit job and starts the cron scheduler.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return fmt.Errorf("schedule conservation audit %q: %w", schedule, err)
	}
	s.logger.Info("scheduled conservation audit", slog.String("schedule", schedule))
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once a running audit finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.auditor.Run(ctx); err != nil {
		s.logger.Error("conservation audit errored", slog.Any("error", err))
	}
}
