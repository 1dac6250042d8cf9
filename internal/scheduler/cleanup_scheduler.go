// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner removes aged entries and reports how many were removed.
type Cleaner interface {
	CleanupCache(ctx context.Context, maxAgeDays int) (int, error)
}

// CleanupScheduler periodically purges aged cache entries.
type CleanupScheduler struct {
	cleaner    Cleaner
	logger     *slog.Logger
	stopChan   chan struct{}
	interval   time.Duration
	maxAgeDays int
}

// NewCleanupScheduler creates a scheduler that purges entries older than
// maxAgeDays every interval.
func NewCleanupScheduler(cleaner Cleaner, interval time.Duration, maxAgeDays int, logger *slog.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		cleaner:    cleaner,
		logger:     logger,
		stopChan:   make(chan struct{}),
		interval:   interval,
		maxAgeDays: maxAgeDays,
	}
}

// Start begins the scheduler loop
func (s *CleanupScheduler) Start(ctx context.Context) {
	s.logger.Info("starting cache cleanup scheduler", "interval", s.interval, "max_age_days", s.maxAgeDays)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCleanup(ctx)
		case <-s.stopChan:
			s.logger.Info("cache cleanup scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("cache cleanup scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *CleanupScheduler) Stop() {
	close(s.stopChan)
}

func (s *CleanupScheduler) runCleanup(ctx context.Context) {
	removed, err := s.cleaner.CleanupCache(ctx, s.maxAgeDays)
	if err != nil {
		s.logger.Error("scheduled cache cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("scheduled cache cleanup removed entries", "removed", removed)
	}
}
