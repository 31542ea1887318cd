package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/order"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/batch"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/product"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity/dto"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	topCachePrefix = "velocity:top:"
	topCacheTTL    = 5 * time.Minute
)

// Cache is the subset of the Redis client used for the leaderboard.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

type Options struct {
	LookbackDays          int
	MinForecastDays       int
	WeeklyLookbackWeeks   int
	MonthlyLookbackMonths int
	BatchConcurrency      int

	// Now defaults to time.Now.
	Now func() time.Time
}

type velocityUseCase struct {
	repo     velocity.Repository
	orders   order.Repository
	products product.Repository
	cache    Cache
	opts     Options
	now      func() time.Time
	tracer   trace.Tracer
	logger   logger.ZapLogger
}

// NewVelocityUseCase wires the estimator. cache may be nil.
func NewVelocityUseCase(
	repo velocity.Repository,
	orders order.Repository,
	products product.Repository,
	cache Cache,
	opts Options,
	log logger.ZapLogger,
) velocity.UseCase {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &velocityUseCase{
		repo:     repo,
		orders:   orders,
		products: products,
		cache:    cache,
		opts:     opts,
		now:      now,
		tracer:   otel.Tracer("omnipos-forecast-service/velocity"),
		logger:   log,
	}
}

func (uc *velocityUseCase) lookback(days int) int {
	if days <= 0 {
		return uc.opts.LookbackDays
	}
	return days
}

func (uc *velocityUseCase) windowStart(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * velocity.Day)
}

func (uc *velocityUseCase) DailyVelocity(ctx context.Context, productID string, lookbackDays int) (float64, error) {
	days := uc.lookback(lookbackDays)
	now := uc.now()
	since := uc.windowStart(now, days)

	lines, err := uc.orders.ListLines(ctx, productID, since, now)
	if err != nil {
		return 0, apperror.Persistence("list order lines", err)
	}
	return velocity.SumQuantity(lines, since, now) / float64(days), nil
}

func (uc *velocityUseCase) WeeklyVelocity(ctx context.Context, productID string, weeks int) (float64, error) {
	if weeks <= 0 {
		weeks = uc.opts.WeeklyLookbackWeeks
	}
	daily, err := uc.DailyVelocity(ctx, productID, weeks*7)
	if err != nil {
		return 0, err
	}
	return daily * 7, nil
}

func (uc *velocityUseCase) MonthlyVelocity(ctx context.Context, productID string, months int) (float64, error) {
	if months <= 0 {
		months = uc.opts.MonthlyLookbackMonths
	}
	daily, err := uc.DailyVelocity(ctx, productID, months*30)
	if err != nil {
		return 0, err
	}
	return daily * 30, nil
}

func (uc *velocityUseCase) DemandVariance(ctx context.Context, productID string, lookbackDays int) (float64, error) {
	days := uc.lookback(lookbackDays)
	now := uc.now()
	since := uc.windowStart(now, days)

	lines, err := uc.orders.ListLines(ctx, productID, since, now)
	if err != nil {
		return 0, apperror.Persistence("list order lines", err)
	}
	return velocity.StdDev(velocity.DailySeries(lines, since, days)), nil
}

func (uc *velocityUseCase) GetVelocity(ctx context.Context, productID string) (*model.SalesVelocity, error) {
	v, err := uc.repo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, apperror.Persistence("get velocity", err)
	}
	if v == nil {
		return nil, apperror.NotFound("sales velocity", productID)
	}
	return v, nil
}

func (uc *velocityUseCase) UpdateVelocity(ctx context.Context, productID string) (*model.SalesVelocity, error) {
	ctx, span := uc.tracer.Start(ctx, "velocity.UpdateVelocity",
		trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	p, err := uc.products.FindByID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Persistence("get product", err)
	}
	if p == nil {
		return nil, apperror.NotFound("product", productID)
	}

	v, err := uc.refresh(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	uc.invalidateTop(ctx)
	return v, nil
}

// refresh reads the widest window once and derives every figure from it, so the
// daily, weekly, monthly and spread values share a single history snapshot.
func (uc *velocityUseCase) refresh(ctx context.Context, productID string) (*model.SalesVelocity, error) {
	now := uc.now()
	dailyDays := uc.opts.LookbackDays
	weeklyDays := uc.opts.WeeklyLookbackWeeks * 7
	monthlyDays := uc.opts.MonthlyLookbackMonths * 30
	widest := max(dailyDays, weeklyDays, monthlyDays)

	lines, err := uc.orders.ListLines(ctx, productID, uc.windowStart(now, widest), now)
	if err != nil {
		return nil, apperror.Persistence("list order lines", err)
	}

	rate := func(days int) float64 {
		if days <= 0 {
			return 0
		}
		return velocity.SumQuantity(lines, uc.windowStart(now, days), now) / float64(days)
	}

	dailyStart := uc.windowStart(now, dailyDays)
	v := &model.SalesVelocity{
		ID:                  uuid.New().String(),
		ProductID:           productID,
		DailyVelocity:       rate(dailyDays),
		WeeklyVelocity:      rate(weeklyDays) * 7,
		MonthlyVelocity:     rate(monthlyDays) * 30,
		VarianceDailyDemand: velocity.StdDev(velocity.DailySeries(lines, dailyStart, dailyDays)),
		LastUpdated:         now,
		CreatedAt:           now,
	}

	existing, err := uc.repo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, apperror.Persistence("get velocity", err)
	}

	if existing == nil {
		inserted, err := uc.repo.Insert(ctx, v)
		if err != nil {
			return nil, apperror.Persistence("insert velocity", err)
		}
		if inserted {
			return v, nil
		}
		// lost an insert race; fall through to update
		existing, err = uc.repo.GetByProduct(ctx, productID)
		if err != nil {
			return nil, apperror.Persistence("get velocity", err)
		}
		if existing == nil {
			return nil, apperror.Persistence("upsert velocity", fmt.Errorf("row for %s vanished", productID))
		}
	}

	v.ID = existing.ID
	v.CreatedAt = existing.CreatedAt
	if err := uc.repo.Update(ctx, v); err != nil {
		return nil, apperror.Persistence("update velocity", err)
	}
	return v, nil
}

func (uc *velocityUseCase) checkHistory(ctx context.Context, productID string) error {
	earliest, err := uc.orders.EarliestLine(ctx, productID)
	if err != nil {
		return apperror.Persistence("earliest order line", err)
	}
	if earliest == nil {
		return &apperror.InsufficientHistoryError{ProductID: productID, HistoryDays: -1, MinimumDays: uc.opts.MinForecastDays}
	}
	days := int(uc.now().Sub(*earliest) / velocity.Day)
	if days < uc.opts.MinForecastDays {
		return &apperror.InsufficientHistoryError{ProductID: productID, HistoryDays: days, MinimumDays: uc.opts.MinForecastDays}
	}
	return nil
}

func (uc *velocityUseCase) UpdateAllVelocities(ctx context.Context) (*dto.VelocityBatchResult, error) {
	ctx, span := uc.tracer.Start(ctx, "velocity.UpdateAllVelocities")
	defer span.End()

	products, err := uc.products.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Persistence("list active products", err)
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	updated := atomic.NewInt64(0)
	skipped := atomic.NewInt64(0)
	failed := atomic.NewInt64(0)

	batch.Run(ctx, ids, uc.opts.BatchConcurrency, func(ctx context.Context, id string) {
		if err := uc.checkHistory(ctx, id); err != nil {
			skipped.Inc()
			if apperror.IsInsufficientHistory(err) {
				uc.logger.Debug("Skipping velocity update", zap.String("product_id", id), zap.String("reason", err.Error()))
				return
			}
			failed.Inc()
			uc.logger.Error("Failed to check order history", zap.String("product_id", id), zap.Error(err))
			return
		}
		if _, err := uc.refresh(ctx, id); err != nil {
			skipped.Inc()
			failed.Inc()
			uc.logger.Error("Failed to update velocity", zap.String("product_id", id), zap.Error(err))
			return
		}
		updated.Inc()
	})

	uc.invalidateTop(ctx)

	result := &dto.VelocityBatchResult{
		Updated: int(updated.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	span.SetAttributes(
		attribute.Int("velocity.updated", result.Updated),
		attribute.Int("velocity.skipped", result.Skipped),
	)
	uc.logger.Info("Velocity batch finished",
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (uc *velocityUseCase) GetTopVelocities(ctx context.Context, limit int) ([]model.SalesVelocity, error) {
	if limit <= 0 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("%s%d", topCachePrefix, limit)
	if uc.cache != nil {
		var cached []model.SalesVelocity
		found, err := uc.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			uc.logger.Warn("Velocity leaderboard cache read failed", zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	items, err := uc.repo.ListTop(ctx, limit)
	if err != nil {
		return nil, apperror.Persistence("list top velocities", err)
	}

	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, cacheKey, items, topCacheTTL); err != nil {
			uc.logger.Warn("Velocity leaderboard cache write failed", zap.Error(err))
		}
	}
	return items, nil
}

func (uc *velocityUseCase) invalidateTop(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, topCachePrefix+"*"); err != nil {
		uc.logger.Warn("Failed to invalidate velocity leaderboard", zap.Error(err))
	}
}
