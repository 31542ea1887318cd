package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation"
	recDTO "github.com/fekuna/omnipos-forecast-service/internal/recommendation/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	velDTO "github.com/fekuna/omnipos-forecast-service/internal/velocity/dto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type calls struct {
	mu    sync.Mutex
	order []string
}

func (c *calls) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append(c.order, name)
}

func (c *calls) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.order...)
}

type stubVelocities struct {
	velocity.UseCase
	calls *calls
	err   error
}

func (s *stubVelocities) UpdateAllVelocities(context.Context) (*velDTO.VelocityBatchResult, error) {
	s.calls.add("velocities")
	if s.err != nil {
		return nil, s.err
	}
	return &velDTO.VelocityBatchResult{Updated: 2, Skipped: 1}, nil
}

type stubRecommendations struct {
	recommendation.UseCase
	calls *calls
}

func (s *stubRecommendations) GenerateAllRecommendations(context.Context) (*recDTO.RecommendationBatchResult, error) {
	s.calls.add("recommendations")
	return &recDTO.RecommendationBatchResult{Generated: 1, Updated: 2}, nil
}

func TestRunOnceOrdersBatches(t *testing.T) {
	c := &calls{}
	s := NewScheduler(&stubVelocities{calls: c}, &stubRecommendations{calls: c}, time.Hour, logger.NewNop())

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := c.snapshot()
	if len(got) != 2 || got[0] != "velocities" || got[1] != "recommendations" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestRunOnceStopsOnVelocityError(t *testing.T) {
	c := &calls{}
	s := NewScheduler(&stubVelocities{calls: c, err: errors.New("db down")}, &stubRecommendations{calls: c}, time.Hour, logger.NewNop())

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if got := c.snapshot(); len(got) != 1 {
		t.Fatalf("recommendations should not run, got %v", got)
	}
}

func TestStartTicksUntilCancelled(t *testing.T) {
	c := &calls{}
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewScheduler(&stubVelocities{calls: c}, &stubRecommendations{calls: c}, 10*time.Millisecond, logger.FromZap(zap.New(core)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for len(c.snapshot()) < 4 {
		select {
		case <-deadline:
			t.Fatalf("scheduler did not tick, calls %v", c.snapshot())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if logs.FilterMessage("Stopping forecast scheduler").Len() != 1 {
		t.Fatalf("expected a stop log")
	}
}

func TestStartDisabled(t *testing.T) {
	c := &calls{}
	s := NewScheduler(&stubVelocities{calls: c}, &stubRecommendations{calls: c}, 0, logger.NewNop())
	s.Start(context.Background())
	if len(c.snapshot()) != 0 {
		t.Fatalf("disabled scheduler should not run")
	}
}
