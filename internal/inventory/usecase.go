package inventory

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
)

type UseCase interface {
	ListLogs(ctx context.Context, filters *dto.LogFilters) ([]model.InventoryLog, int, error)
}
