package blacklist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every quarter hour.
const DefaultSchedule = "@every 15m"

// sweepTimeout bounds a single scheduled sweep.
const sweepTimeout = time.Minute

// Sweeper runs Service.Sweep on a cron schedule.
type Sweeper struct {
	svc      *Service
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
}

func NewSweeper(svc *Service, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		svc:      svc,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep job and starts the scheduler. An invalid
// schedule is reported here rather than at the first tick.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return fmt.Errorf("blacklist: scheduling sweep %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("blacklist sweeper started", "schedule", s.schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("blacklist sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.svc.Sweep(ctx); err != nil {
		s.logger.Error("blacklist sweep failed", "error", err)
	}
}
