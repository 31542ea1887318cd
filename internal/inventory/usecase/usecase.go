package usecase

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	"github.com/fekuna/omnipos-forecast-service/internal/inventory"
	"github.com/fekuna/omnipos-forecast-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
)

const maxPageSize = 200

type inventoryUseCase struct {
	repo   inventory.Repository
	logger logger.ZapLogger
}

func NewInventoryUseCase(repo inventory.Repository, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *inventoryUseCase) ListLogs(ctx context.Context, filters *dto.LogFilters) ([]model.InventoryLog, int, error) {
	if filters == nil {
		filters = &dto.LogFilters{}
	}
	if filters.PageSize <= 0 || filters.PageSize > maxPageSize {
		filters.PageSize = 50
	}
	if filters.Page < 1 {
		filters.Page = 1
	}

	logs, count, err := uc.repo.ListLogs(ctx, filters)
	if err != nil {
		return nil, 0, apperror.Persistence("list inventory logs", err)
	}
	return logs, count, nil
}
