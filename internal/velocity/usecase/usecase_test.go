package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/store/memory"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		LookbackDays:          90,
		MinForecastDays:       14,
		WeeklyLookbackWeeks:   12,
		MonthlyLookbackMonths: 6,
		BatchConcurrency:      2,
		Now:                   func() time.Time { return now },
	}
}

func newUseCase(s *memory.Store, c Cache, log logger.ZapLogger) velocity.UseCase {
	if log == nil {
		log = logger.NewNop()
	}
	return NewVelocityUseCase(s.Velocities(), s.Orders(), s.Products(), c, testOptions(), log)
}

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d)*velocity.Day + time.Hour)
}

// seedSteady gives productID nine orders of 10 units on days 1, 11, ... 81 back.
func seedSteady(s *memory.Store, productID string) {
	s.PutProduct(model.Product{ID: productID, Name: productID, IsActive: true, Stock: 5})
	for i := 0; i < 9; i++ {
		s.AddOrderLine(productID, 10, daysAgo(i*10+1))
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestUpdateVelocityUnknownProduct(t *testing.T) {
	uc := newUseCase(memory.New(), nil, nil)
	_, err := uc.UpdateVelocity(context.Background(), "missing")
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateVelocityFigures(t *testing.T) {
	s := memory.New()
	seedSteady(s, "p1")
	uc := newUseCase(s, nil, nil)

	v, err := uc.UpdateVelocity(context.Background(), "p1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !approx(v.DailyVelocity, 1) {
		t.Fatalf("daily: expected 1, got %v", v.DailyVelocity)
	}
	// 90 units over 84 days, per week
	if !approx(v.WeeklyVelocity, 90.0/84.0*7) {
		t.Fatalf("weekly: got %v", v.WeeklyVelocity)
	}
	// 90 units over 180 days, per 30 days
	if !approx(v.MonthlyVelocity, 15) {
		t.Fatalf("monthly: got %v", v.MonthlyVelocity)
	}
	if v.VarianceDailyDemand <= 0 {
		t.Fatalf("expected positive spread, got %v", v.VarianceDailyDemand)
	}
	if !v.LastUpdated.Equal(now) {
		t.Fatalf("expected last updated %v, got %v", now, v.LastUpdated)
	}

	stored, err := uc.GetVelocity(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.DailyVelocity != v.DailyVelocity || stored.ID != v.ID {
		t.Fatalf("stored row differs: %+v vs %+v", stored, v)
	}
}

func TestUpdateVelocityTwiceKeepsIdentity(t *testing.T) {
	s := memory.New()
	seedSteady(s, "p1")
	uc := newUseCase(s, nil, nil)
	ctx := context.Background()

	first, err := uc.UpdateVelocity(ctx, "p1")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	s.AddOrderLine("p1", 90, daysAgo(2))
	second, err := uc.UpdateVelocity(ctx, "p1")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row id, got %s and %s", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created at changed")
	}
	if !approx(second.DailyVelocity, 2) {
		t.Fatalf("expected daily 2 after new order, got %v", second.DailyVelocity)
	}
}

func TestVelocityFiguresNeverNegative(t *testing.T) {
	s := memory.New()
	s.PutProduct(model.Product{ID: "p1", IsActive: true})
	s.AddOrderLine("p1", -40, daysAgo(3))
	s.AddOrderLine("p1", 0, daysAgo(4))
	uc := newUseCase(s, nil, nil)

	v, err := uc.UpdateVelocity(context.Background(), "p1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	for name, x := range map[string]float64{
		"daily":   v.DailyVelocity,
		"weekly":  v.WeeklyVelocity,
		"monthly": v.MonthlyVelocity,
		"spread":  v.VarianceDailyDemand,
	} {
		if x != 0 {
			t.Fatalf("%s: expected 0, got %v", name, x)
		}
	}
}

func TestDerivedQueries(t *testing.T) {
	s := memory.New()
	seedSteady(s, "p1")
	uc := newUseCase(s, nil, nil)
	ctx := context.Background()

	daily, err := uc.DailyVelocity(ctx, "p1", 30)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	// days 1, 11, 21 fall in the last 30 days
	if !approx(daily, 1) {
		t.Fatalf("expected 1, got %v", daily)
	}
	weekly, err := uc.WeeklyVelocity(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if !approx(weekly, 90.0/84.0*7) {
		t.Fatalf("weekly default window: got %v", weekly)
	}
	monthly, err := uc.MonthlyVelocity(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if !approx(monthly, 30) {
		t.Fatalf("expected 30, got %v", monthly)
	}
	spread, err := uc.DemandVariance(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("variance: %v", err)
	}
	// one 10-unit day in ten
	if !approx(spread, 3) {
		t.Fatalf("expected 3, got %v", spread)
	}
}

func TestUpdateAllVelocitiesCounts(t *testing.T) {
	s := memory.New()
	seedSteady(s, "steady")

	s.PutProduct(model.Product{ID: "never-sold", IsActive: true})

	s.PutProduct(model.Product{ID: "new", IsActive: true})
	s.AddOrderLine("new", 3, daysAgo(5))

	s.PutProduct(model.Product{ID: "broken", IsActive: true})
	s.AddOrderLine("broken", 3, daysAgo(30))
	s.FailOn(memory.OpListLines, "broken", errors.New("connection reset"))

	s.PutProduct(model.Product{ID: "retired", IsActive: false})
	s.AddOrderLine("retired", 3, daysAgo(30))

	core, logs := observer.New(zapcore.DebugLevel)
	uc := newUseCase(s, nil, logger.FromZap(zap.New(core)))

	res, err := uc.UpdateAllVelocities(context.Background())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Updated != 1 || res.Skipped != 3 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	failures := logs.FilterMessage("Failed to update velocity").All()
	if len(failures) != 1 || failures[0].ContextMap()["product_id"] != "broken" {
		t.Fatalf("expected one failure log for broken, got %v", failures)
	}
	if n := logs.FilterMessage("Skipping velocity update").Len(); n != 2 {
		t.Fatalf("expected 2 skip logs, got %d", n)
	}
	if logs.FilterMessage("Velocity batch finished").Len() != 1 {
		t.Fatalf("expected a summary log")
	}

	if _, err := uc.GetVelocity(context.Background(), "retired"); !apperror.IsNotFound(err) {
		t.Fatalf("inactive product should not be refreshed, got %v", err)
	}
}

func TestTopVelocitiesCacheInvalidatedOnUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisClient(context.Background(), &cache.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	s := memory.New()
	seedSteady(s, "slow")
	uc := newUseCase(s, rc, nil)
	ctx := context.Background()

	if _, err := uc.UpdateVelocity(ctx, "slow"); err != nil {
		t.Fatalf("update: %v", err)
	}
	top, err := uc.GetTopVelocities(ctx, 0)
	if err != nil || len(top) != 1 {
		t.Fatalf("top: %v %v", top, err)
	}
	if !mr.Exists("velocity:top:10") {
		t.Fatalf("expected leaderboard to be cached")
	}

	seedSteady(s, "fast")
	for i := 0; i < 9; i++ {
		s.AddOrderLine("fast", 10, daysAgo(i*10+2))
	}
	if _, err := uc.UpdateVelocity(ctx, "fast"); err != nil {
		t.Fatalf("update fast: %v", err)
	}
	if mr.Exists("velocity:top:10") {
		t.Fatalf("expected single update to drop the cached leaderboard")
	}
	top, _ = uc.GetTopVelocities(ctx, 0)
	if len(top) != 2 || top[0].ProductID != "fast" {
		t.Fatalf("expected fast first after update, got %+v", top)
	}

	if _, err := uc.UpdateAllVelocities(ctx); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if mr.Exists("velocity:top:10") {
		t.Fatalf("expected batch to drop the cached leaderboard")
	}
}

func TestTopVelocitiesTieBreak(t *testing.T) {
	s := memory.New()
	seedSteady(s, "a")
	seedSteady(s, "b")
	uc := newUseCase(s, nil, nil)
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		if _, err := uc.UpdateVelocity(ctx, id); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}
	top, err := uc.GetTopVelocities(ctx, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ProductID != "b" || top[1].ProductID != "a" {
		t.Fatalf("expected creation order on ties, got %+v", top)
	}
}
