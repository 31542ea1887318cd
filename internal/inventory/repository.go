package inventory

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
)

// Repository reads the append-only inventory log. Rows are written only by the
// recommendation apply transaction.
type Repository interface {
	ListLogs(ctx context.Context, filters *dto.LogFilters) ([]model.InventoryLog, int, error)
}
