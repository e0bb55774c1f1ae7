package service

import (
	"context"
	"time"

	"market-sentiment-pipeline/internal/pipeline/cache"
	"market-sentiment-pipeline/pkg/logger"

	"github.com/robfig/cron/v3"
)

// RetentionSweeper periodically purges time-series points and alerts older
// than the retention window. It runs on its own schedule, independent of the
// batch loop.
type RetentionSweeper interface {
	Start(ctx context.Context) error
	CleanupOldData()
}

// NewRetentionSweeper creates a new RetentionSweeper.
func NewRetentionSweeper(cacheStore *cache.Store, log *logger.Logger, retention time.Duration, schedule string) RetentionSweeper {
	return &retentionSweeper{
		cache:     cacheStore,
		logger:    log,
		retention: retention,
		schedule:  schedule,
	}
}

type retentionSweeper struct {
	cache     *cache.Store
	logger    *logger.Logger
	retention time.Duration
	schedule  string
}

// Start schedules the sweep and stops it when ctx is cancelled.
func (s *retentionSweeper) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.CleanupOldData); err != nil {
		return err
	}
	c.Start()
	s.logger.Info("Retention sweeper started", logger.StringField("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		s.logger.Info("Retention sweeper stopped")
	}()
	return nil
}

// CleanupOldData removes entries strictly older than the retention cutoff.
// Interleaving with the processor is safe: trims only touch old entries while
// appends always add at "now".
func (s *retentionSweeper) CleanupOldData() {
	cutoff := time.Now().Add(-s.retention)
	points, alerts := s.cache.TrimBefore(cutoff)
	s.logger.Info("Retention sweep completed",
		logger.IntField("points_removed", points),
		logger.IntField("alerts_removed", alerts),
		logger.Field("cutoff", cutoff),
	)
}
