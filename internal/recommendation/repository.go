package recommendation

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation/dto"
)

type Repository interface {
	// GetByProduct returns nil when no recommendation exists.
	GetByProduct(ctx context.Context, productID string) (*model.StockRecommendation, error)

	// Insert is insert-if-absent: false means a row for the product already exists.
	Insert(ctx context.Context, rec *model.StockRecommendation) (bool, error)
	// Update overwrites every column including applied_at.
	Update(ctx context.Context, rec *model.StockRecommendation) error

	// ListTop orders by reorder point desc, then creation order.
	ListTop(ctx context.Context, limit int) ([]model.StockRecommendation, error)
	FindAll(ctx context.Context, filters *dto.RecommendationFilters) ([]model.RecommendationWithStock, int, error)

	// ApplyWithLog sets products.stock to entry.NewStock only while it still equals
	// entry.PreviousStock, appends entry and stamps rec.AppliedAt, all in one transaction.
	// A changed stock yields apperror.ErrStockConflict and nothing is written.
	ApplyWithLog(ctx context.Context, rec *model.StockRecommendation, entry *model.InventoryLog) error
}
