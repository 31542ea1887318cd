package supplier

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
)

type Repository interface {
	ListByProduct(ctx context.Context, productID string) ([]model.SupplierLink, error)
}
