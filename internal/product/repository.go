package product

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
)

// Repository is the read side of the catalog's products table.
type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
	ListActive(ctx context.Context) ([]model.Product, error)
}
