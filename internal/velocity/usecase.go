package velocity

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity/dto"
)

type UseCase interface {
	DailyVelocity(ctx context.Context, productID string, lookbackDays int) (float64, error)
	WeeklyVelocity(ctx context.Context, productID string, weeks int) (float64, error)
	MonthlyVelocity(ctx context.Context, productID string, months int) (float64, error)
	// DemandVariance returns the population standard deviation of zero-filled daily demand.
	DemandVariance(ctx context.Context, productID string, lookbackDays int) (float64, error)

	GetVelocity(ctx context.Context, productID string) (*model.SalesVelocity, error)
	UpdateVelocity(ctx context.Context, productID string) (*model.SalesVelocity, error)
	UpdateAllVelocities(ctx context.Context) (*dto.VelocityBatchResult, error)

	GetTopVelocities(ctx context.Context, limit int) ([]model.SalesVelocity, error)
}
