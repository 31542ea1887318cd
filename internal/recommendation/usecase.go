package recommendation

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation/dto"
)

type UseCase interface {
	GenerateRecommendation(ctx context.Context, productID string) (*model.StockRecommendation, error)
	GenerateAllRecommendations(ctx context.Context) (*dto.RecommendationBatchResult, error)
	ApplyRecommendation(ctx context.Context, productID, userID string) (*dto.ApplyResult, error)

	GetRecommendation(ctx context.Context, productID string) (*model.StockRecommendation, error)
	GetVelocityWithForecast(ctx context.Context, productID string) (*dto.VelocityForecast, error)
	GetTopVelocities(ctx context.Context, limit int) ([]model.SalesVelocity, error)
	GetTopRecommendations(ctx context.Context, limit int) ([]model.StockRecommendation, error)
	GetAllRecommendations(ctx context.Context, filters *dto.RecommendationFilters) ([]model.RecommendationWithStock, int, error)
}
