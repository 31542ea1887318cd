package handler

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/inventory"
	"github.com/fekuna/omnipos-forecast-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/grpcx"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "omnipos.forecast.v1.InventoryLogService"

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(grpcx.ServiceDesc(ServiceName,
		grpcx.Method(ServiceName, "ListInventoryLogs", h.ListInventoryLogs),
	), h)
}

func (h *InventoryHandler) ListInventoryLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	startDate, err := grpcx.Time(req, "start_date")
	if err != nil {
		return nil, err
	}
	endDate, err := grpcx.Time(req, "end_date")
	if err != nil {
		return nil, err
	}

	items, count, err := h.uc.ListLogs(ctx, &dto.LogFilters{
		ProductID: grpcx.String(req, "product_id"),
		StartDate: startDate,
		EndDate:   endDate,
		Page:      grpcx.Int(req, "page", 1),
		PageSize:  grpcx.Int(req, "page_size", 50),
	})
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}

	entries := make([]interface{}, len(items))
	for i := range items {
		entries[i] = mapLog(&items[i])
	}
	return grpcx.NewStruct(map[string]interface{}{
		"items": entries,
		"total": count,
	})
}

func mapLog(l *model.InventoryLog) map[string]interface{} {
	var createdBy interface{}
	if l.CreatedBy != nil {
		createdBy = *l.CreatedBy
	}
	return map[string]interface{}{
		"id":             l.ID,
		"product_id":     l.ProductID,
		"previous_stock": l.PreviousStock,
		"new_stock":      l.NewStock,
		"change":         l.Change,
		"reason":         l.Reason,
		"created_by":     createdBy,
		"created_at":     grpcx.FormatTime(l.CreatedAt),
	}
}
