package velocity

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
)

type Repository interface {
	// GetByProduct returns nil when no velocity has been computed yet.
	GetByProduct(ctx context.Context, productID string) (*model.SalesVelocity, error)

	// Insert is insert-if-absent: false means a row for the product already exists.
	Insert(ctx context.Context, v *model.SalesVelocity) (bool, error)
	Update(ctx context.Context, v *model.SalesVelocity) error

	// ListTop orders by daily velocity desc, then creation order.
	ListTop(ctx context.Context, limit int) ([]model.SalesVelocity, error)
}
