package registry

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/sta4152/datahub/pkg/observability"
)

// Scheduler reloads a registry on a cron schedule
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// NewScheduler creates a scheduler running reloader on spec, a standard
// five-field cron expression or a descriptor such as "@every 5m".
func NewScheduler(ctx context.Context, spec string, reloader Reloader, logger *observability.Logger) (*Scheduler, error) {
	logger = logger.WithField("component", "scheduler")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(spec, func() {
		defer observability.RecoverPanic(logger, "registry scheduler")
		if err := reloader.Load(ctx, TriggerSchedule); err != nil {
			logger.WithError(err).Warn("Scheduled reload failed, keeping previous snapshot")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: logger.WithField("schedule", spec)}, nil
}

// Start runs the schedule in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Registry refresh scheduled")
}

// Stop stops the schedule and waits for a running reload to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
