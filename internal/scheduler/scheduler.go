package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher reloads a cached dataset.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	refresher Refresher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScheduler creates a scheduler that refreshes the site dataset on the
// standard 5-field cron spec, evaluated in loc.
func NewScheduler(spec string, loc *time.Location, refresher Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		spec:      spec,
		refresher: refresher,
		timeout:   2 * time.Minute,
		logger:    logger,
	}
}

// Start registers the refresh job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("dataset_refresh", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.refreshDataset); err != nil {
		return fmt.Errorf("schedule dataset refresh %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refreshDataset() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Error("scheduled dataset refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug("scheduled dataset refresh completed")
}
