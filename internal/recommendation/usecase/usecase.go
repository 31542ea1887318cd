package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/batch"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/policy"
	"github.com/fekuna/omnipos-forecast-service/internal/product"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/supplier"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	confidenceForecast = 0.95
	confidenceDefault  = 0.5

	lockTTL      = 5 * time.Second
	lockAttempts = 3
	lockBackoff  = 100 * time.Millisecond
)

// Locker serializes applies per product. *cache.RedisClient satisfies it.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

// Publisher is satisfied by *broker.KafkaProducer.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Options struct {
	Policy              policy.Params
	DefaultLeadTimeDays float64
	DefaultCostRatio    float64
	HoldingCostPercent  float64
	OrderCost           float64
	BatchConcurrency    int

	// Now defaults to time.Now.
	Now func() time.Time
}

type recommendationUseCase struct {
	repo       recommendation.Repository
	velocities velocity.Repository
	velocityUC velocity.UseCase
	products   product.Repository
	suppliers  supplier.Repository
	locker     Locker
	publisher  Publisher
	opts       Options
	now        func() time.Time
	tracer     trace.Tracer
	logger     logger.ZapLogger
}

// NewRecommendationUseCase wires the engine. locker and publisher may be nil.
func NewRecommendationUseCase(
	repo recommendation.Repository,
	velocities velocity.Repository,
	velocityUC velocity.UseCase,
	products product.Repository,
	suppliers supplier.Repository,
	locker Locker,
	publisher Publisher,
	opts Options,
	log logger.ZapLogger,
) recommendation.UseCase {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &recommendationUseCase{
		repo:       repo,
		velocities: velocities,
		velocityUC: velocityUC,
		products:   products,
		suppliers:  suppliers,
		locker:     locker,
		publisher:  publisher,
		opts:       opts,
		now:        now,
		tracer:     otel.Tracer("omnipos-forecast-service/recommendation"),
		logger:     log,
	}
}

func (uc *recommendationUseCase) GenerateRecommendation(ctx context.Context, productID string) (*model.StockRecommendation, error) {
	ctx, span := uc.tracer.Start(ctx, "recommendation.GenerateRecommendation",
		trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	rec, _, err := uc.generate(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rec, nil
}

// generate reports created=true when the insert branch wrote a new row.
func (uc *recommendationUseCase) generate(ctx context.Context, productID string) (*model.StockRecommendation, bool, error) {
	// 1. Product and velocity
	p, err := uc.products.FindByID(ctx, productID)
	if err != nil {
		return nil, false, apperror.Persistence("get product", err)
	}
	if p == nil {
		return nil, false, apperror.NotFound("product", productID)
	}

	v, err := uc.velocities.GetByProduct(ctx, productID)
	if err != nil {
		return nil, false, apperror.Persistence("get velocity", err)
	}
	if v == nil {
		v, err = uc.velocityUC.UpdateVelocity(ctx, productID)
		if err != nil {
			return nil, false, err
		}
	}

	now := uc.now()
	rec := &model.StockRecommendation{
		ID:        uuid.New().String(),
		ProductID: productID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if v.DailyVelocity <= 0 {
		// 2. No sales: conservative levels from current stock
		levels := policy.DefaultLevels(p.Stock)
		setLevels(rec, levels)
		rec.Confidence = confidenceDefault
	} else {
		// 3. Supplier terms
		leadTime, leadTimeVariance, unitCost, err := uc.supplierTerms(ctx, p)
		if err != nil {
			return nil, false, err
		}

		// 4. Policy levels
		levels, err := policy.Compute(policy.Input{
			DailyVelocity: v.DailyVelocity,
			DemandStdDev:  v.VarianceDailyDemand,
			LeadTimeDays:  leadTime,
		}, uc.opts.Policy)
		if err != nil {
			return nil, false, err
		}
		setLevels(rec, levels)
		rec.ForecastedVelocity = v.DailyVelocity
		rec.LeadTimeVariance = leadTimeVariance
		rec.Confidence = confidenceForecast

		// 5. EOQ, informational only
		holding := policy.HoldingCost(unitCost, uc.opts.HoldingCostPercent)
		eoq, err := policy.EconomicOrderQuantity(v.DailyVelocity*policy.DaysPerYear, uc.opts.OrderCost, holding)
		if err != nil {
			uc.logger.Warn("Skipping economic order quantity",
				zap.String("product_id", productID),
				zap.Float64("unit_cost", unitCost),
				zap.Error(err),
			)
			eoq = 0
		}
		rec.EconomicOrderQuantity = eoq
	}

	// 6. Upsert
	created, err := uc.upsert(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

func setLevels(rec *model.StockRecommendation, l policy.Levels) {
	rec.MinStock = l.MinStock
	rec.MaxStock = l.MaxStock
	rec.SafetyStock = l.SafetyStock
	rec.ReorderPoint = l.ReorderPoint
	rec.RecommendedStock = l.RecommendedStock
}

// supplierTerms averages lead time and unit cost over the product's supplier links.
func (uc *recommendationUseCase) supplierTerms(ctx context.Context, p *model.Product) (leadTime, leadTimeVariance, unitCost float64, err error) {
	links, err := uc.suppliers.ListByProduct(ctx, p.ID)
	if err != nil {
		return 0, 0, 0, apperror.Persistence("list supplier links", err)
	}
	if len(links) == 0 {
		cost := p.Price.Mul(decimal.NewFromFloat(uc.opts.DefaultCostRatio))
		return uc.opts.DefaultLeadTimeDays, 0, cost.InexactFloat64(), nil
	}

	n := float64(len(links))
	totalLead := 0.0
	totalCost := decimal.Zero
	for _, l := range links {
		totalLead += float64(l.EffectiveLeadTime())
		totalCost = totalCost.Add(l.Cost)
	}
	leadTime = totalLead / n
	for _, l := range links {
		d := float64(l.EffectiveLeadTime()) - leadTime
		leadTimeVariance += d * d
	}
	leadTimeVariance /= n
	unitCost = totalCost.Div(decimal.NewFromInt(int64(len(links)))).InexactFloat64()
	return leadTime, leadTimeVariance, unitCost, nil
}

// upsert inserts when absent, otherwise overwrites the existing row. applied_at
// survives regeneration only while the recommended stock stays the same.
func (uc *recommendationUseCase) upsert(ctx context.Context, rec *model.StockRecommendation) (bool, error) {
	existing, err := uc.repo.GetByProduct(ctx, rec.ProductID)
	if err != nil {
		return false, apperror.Persistence("get recommendation", err)
	}

	if existing == nil {
		inserted, err := uc.repo.Insert(ctx, rec)
		if err != nil {
			return false, apperror.Persistence("insert recommendation", err)
		}
		if inserted {
			return true, nil
		}
		existing, err = uc.repo.GetByProduct(ctx, rec.ProductID)
		if err != nil {
			return false, apperror.Persistence("get recommendation", err)
		}
		if existing == nil {
			return false, apperror.Persistence("upsert recommendation", fmt.Errorf("row for %s vanished", rec.ProductID))
		}
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	if existing.AppliedAt != nil && existing.RecommendedStock == rec.RecommendedStock {
		rec.AppliedAt = existing.AppliedAt
	}
	if err := uc.repo.Update(ctx, rec); err != nil {
		return false, apperror.Persistence("update recommendation", err)
	}
	return false, nil
}

func (uc *recommendationUseCase) GenerateAllRecommendations(ctx context.Context) (*dto.RecommendationBatchResult, error) {
	ctx, span := uc.tracer.Start(ctx, "recommendation.GenerateAllRecommendations")
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

	generated := atomic.NewInt64(0)
	updated := atomic.NewInt64(0)
	failed := atomic.NewInt64(0)

	batch.Run(ctx, ids, uc.opts.BatchConcurrency, func(ctx context.Context, id string) {
		_, created, err := uc.generate(ctx, id)
		if err != nil {
			failed.Inc()
			uc.logger.Error("Failed to generate recommendation", zap.String("product_id", id), zap.Error(err))
			return
		}
		if created {
			generated.Inc()
		} else {
			updated.Inc()
		}
	})

	result := &dto.RecommendationBatchResult{
		Generated: int(generated.Load()),
		Updated:   int(updated.Load()),
		Failed:    int(failed.Load()),
	}
	span.SetAttributes(
		attribute.Int("recommendation.generated", result.Generated),
		attribute.Int("recommendation.updated", result.Updated),
		attribute.Int("recommendation.failed", result.Failed),
	)
	uc.logger.Info("Recommendation batch finished",
		zap.Int("generated", result.Generated),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (uc *recommendationUseCase) ApplyRecommendation(ctx context.Context, productID, userID string) (*dto.ApplyResult, error) {
	ctx, span := uc.tracer.Start(ctx, "recommendation.ApplyRecommendation",
		trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	// 0. Acquire Lock
	if uc.locker != nil {
		lockKey := fmt.Sprintf("lock:recommendation:apply:%s", productID)
		lockValue := uuid.New().String()
		acquired := false
		for i := 0; i < lockAttempts; i++ {
			ok, err := uc.locker.AcquireLock(ctx, lockKey, lockValue, lockTTL)
			if err != nil {
				uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(lockBackoff):
			}
		}
		if !acquired {
			return nil, apperror.ErrBusy
		}
		defer func() {
			if err := uc.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, lockValue); err != nil {
				uc.logger.Warn("failed to release apply lock", zap.String("product_id", productID), zap.Error(err))
			}
		}()
	}

	// 1. Recommendation and current stock
	rec, err := uc.repo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, apperror.Persistence("get recommendation", err)
	}
	if rec == nil {
		return nil, apperror.NotFound("stock recommendation", productID)
	}
	p, err := uc.products.FindByID(ctx, productID)
	if err != nil {
		return nil, apperror.Persistence("get product", err)
	}
	if p == nil {
		return nil, apperror.NotFound("product", productID)
	}

	// 2. Difference
	now := uc.now()
	change := rec.RecommendedStock - p.Stock

	var createdBy *string
	if userID != "" {
		createdBy = &userID
	}
	entry := &model.InventoryLog{
		ID:            uuid.New().String(),
		ProductID:     productID,
		PreviousStock: p.Stock,
		NewStock:      rec.RecommendedStock,
		Change:        change,
		Reason:        fmt.Sprintf("Applied stock recommendation: stock %d -> %d", p.Stock, rec.RecommendedStock),
		CreatedBy:     createdBy,
		CreatedAt:     now,
	}
	rec.AppliedAt = &now

	// 3-5. Log, stock and applied_at in one transaction
	if err := uc.repo.ApplyWithLog(ctx, rec, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, apperror.ErrStockConflict) {
			return nil, err
		}
		return nil, apperror.Persistence("apply recommendation", err)
	}

	result := &dto.ApplyResult{
		ProductID:     productID,
		PreviousStock: entry.PreviousStock,
		NewStock:      entry.NewStock,
		Change:        entry.Change,
		AppliedAt:     now,
	}

	uc.logger.Info("Applied stock recommendation",
		zap.String("product_id", productID),
		zap.Int("previous_stock", result.PreviousStock),
		zap.Int("new_stock", result.NewStock),
		zap.String("user_id", userID),
	)
	uc.publishApplied(ctx, result, userID)
	return result, nil
}

func (uc *recommendationUseCase) publishApplied(ctx context.Context, result *dto.ApplyResult, userID string) {
	if uc.publisher == nil {
		return
	}
	event := dto.RecommendationAppliedEvent{
		EventID:   uuid.New().String(),
		EventType: dto.EventRecommendationApplied,
		Payload:   dto.AppliedPayload{ApplyResult: *result, AppliedBy: userID},
		Timestamp: result.AppliedAt,
	}
	body, err := json.Marshal(event)
	if err != nil {
		uc.logger.Error("Failed to marshal applied event", zap.Error(err))
		return
	}
	if err := uc.publisher.Publish(ctx, result.ProductID, body); err != nil {
		uc.logger.Warn("Failed to publish applied event",
			zap.String("product_id", result.ProductID),
			zap.Error(err),
		)
	}
}

func (uc *recommendationUseCase) GetRecommendation(ctx context.Context, productID string) (*model.StockRecommendation, error) {
	rec, err := uc.repo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, apperror.Persistence("get recommendation", err)
	}
	if rec == nil {
		return nil, apperror.NotFound("stock recommendation", productID)
	}
	return rec, nil
}

func (uc *recommendationUseCase) GetVelocityWithForecast(ctx context.Context, productID string) (*dto.VelocityForecast, error) {
	p, err := uc.products.FindByID(ctx, productID)
	if err != nil {
		return nil, apperror.Persistence("get product", err)
	}
	if p == nil {
		return nil, apperror.NotFound("product", productID)
	}
	v, err := uc.velocityUC.GetVelocity(ctx, productID)
	if err != nil {
		return nil, err
	}

	revenue := p.Price.Mul(decimal.NewFromFloat(v.MonthlyVelocity)).Round(2)
	return &dto.VelocityForecast{
		Velocity:                *v,
		Price:                   p.Price,
		EstimatedMonthlyRevenue: revenue,
	}, nil
}

func (uc *recommendationUseCase) GetTopVelocities(ctx context.Context, limit int) ([]model.SalesVelocity, error) {
	return uc.velocityUC.GetTopVelocities(ctx, limit)
}

func (uc *recommendationUseCase) GetTopRecommendations(ctx context.Context, limit int) ([]model.StockRecommendation, error) {
	if limit <= 0 {
		limit = 10
	}
	items, err := uc.repo.ListTop(ctx, limit)
	if err != nil {
		return nil, apperror.Persistence("list top recommendations", err)
	}
	return items, nil
}

func (uc *recommendationUseCase) GetAllRecommendations(ctx context.Context, filters *dto.RecommendationFilters) ([]model.RecommendationWithStock, int, error) {
	if filters == nil {
		filters = &dto.RecommendationFilters{}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 50
	}
	if filters.PageSize > 200 {
		filters.PageSize = 200
	}

	items, total, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, apperror.Persistence("list recommendations", err)
	}
	return items, total, nil
}
