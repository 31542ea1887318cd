// Package scheduler runs the velocity and recommendation batches on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	"go.uber.org/zap"
)

type Scheduler struct {
	velocities      velocity.UseCase
	recommendations recommendation.UseCase
	interval        time.Duration
	logger          logger.ZapLogger
}

func NewScheduler(velocities velocity.UseCase, recommendations recommendation.UseCase, interval time.Duration, log logger.ZapLogger) *Scheduler {
	return &Scheduler{
		velocities:      velocities,
		recommendations: recommendations,
		interval:        interval,
		logger:          log,
	}
}

// RunOnce refreshes velocities, then regenerates recommendations from them.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	vres, err := s.velocities.UpdateAllVelocities(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	rres, err := s.recommendations.GenerateAllRecommendations(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("Forecast cycle finished",
		zap.Int("velocities_updated", vres.Updated),
		zap.Int("velocities_skipped", vres.Skipped),
		zap.Int("recommendations_generated", rres.Generated),
		zap.Int("recommendations_updated", rres.Updated),
		zap.Int("recommendations_failed", rres.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Start blocks until ctx is done. A non-positive interval disables the loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Forecast scheduler disabled")
		return
	}
	s.logger.Info("Starting forecast scheduler", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping forecast scheduler")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Forecast cycle failed", zap.Error(err))
			}
		}
	}
}
