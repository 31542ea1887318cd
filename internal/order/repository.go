package order

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
)

// Repository reads fulfilled order lines. It never writes.
type Repository interface {
	// ListLines returns lines for productID with created_at in [since, until).
	ListLines(ctx context.Context, productID string, since, until time.Time) ([]model.OrderLine, error)
	// EarliestLine returns nil when the product has never been ordered.
	EarliestLine(ctx context.Context, productID string) (*time.Time, error)
}
