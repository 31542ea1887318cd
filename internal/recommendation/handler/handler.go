package handler

import (
	"context"

	"github.com/fekuna/omnipos-forecast-service/internal/auth"
	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/grpcx"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation/dto"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "omnipos.forecast.v1.ForecastService"

type ForecastHandler struct {
	uc         recommendation.UseCase
	velocityUC velocity.UseCase
	logger     logger.ZapLogger
}

func NewForecastHandler(uc recommendation.UseCase, velocityUC velocity.UseCase, log logger.ZapLogger) *ForecastHandler {
	return &ForecastHandler{
		uc:         uc,
		velocityUC: velocityUC,
		logger:     log,
	}
}

// Register adds the forecast service to s.
func (h *ForecastHandler) Register(s grpc.ServiceRegistrar) {
	desc := grpcx.ServiceDesc(ServiceName,
		grpcx.Method(ServiceName, "GenerateRecommendation", h.GenerateRecommendation),
		grpcx.Method(ServiceName, "GenerateAllRecommendations", h.GenerateAllRecommendations),
		grpcx.Method(ServiceName, "ApplyRecommendation", h.ApplyRecommendation),
		grpcx.Method(ServiceName, "GetRecommendation", h.GetRecommendation),
		grpcx.Method(ServiceName, "ListRecommendations", h.ListRecommendations),
		grpcx.Method(ServiceName, "GetTopRecommendations", h.GetTopRecommendations),
		grpcx.Method(ServiceName, "UpdateVelocity", h.UpdateVelocity),
		grpcx.Method(ServiceName, "UpdateAllVelocities", h.UpdateAllVelocities),
		grpcx.Method(ServiceName, "GetVelocity", h.GetVelocity),
		grpcx.Method(ServiceName, "GetVelocityWithForecast", h.GetVelocityWithForecast),
		grpcx.Method(ServiceName, "GetTopVelocities", h.GetTopVelocities),
	)
	s.RegisterService(desc, h)
}

func (h *ForecastHandler) GenerateRecommendation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := grpcx.RequiredString(req, "product_id")
	if err != nil {
		return nil, err
	}
	rec, err := h.uc.GenerateRecommendation(ctx, productID)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(mapRecommendation(rec))
}

func (h *ForecastHandler) GenerateAllRecommendations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.uc.GenerateAllRecommendations(ctx)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(map[string]interface{}{
		"generated": res.Generated,
		"updated":   res.Updated,
		"failed":    res.Failed,
	})
}

func (h *ForecastHandler) ApplyRecommendation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := grpcx.RequiredString(req, "product_id")
	if err != nil {
		return nil, err
	}
	res, err := h.uc.ApplyRecommendation(ctx, productID, auth.GetUserID(ctx))
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(map[string]interface{}{
		"product_id":     res.ProductID,
		"previous_stock": res.PreviousStock,
		"new_stock":      res.NewStock,
		"change":         res.Change,
		"applied_at":     grpcx.FormatTime(res.AppliedAt),
	})
}

func (h *ForecastHandler) GetRecommendation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := grpcx.RequiredString(req, "product_id")
	if err != nil {
		return nil, err
	}
	rec, err := h.uc.GetRecommendation(ctx, productID)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(mapRecommendation(rec))
}

func (h *ForecastHandler) ListRecommendations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filters := &dto.RecommendationFilters{
		AppliedOnly: grpcx.Bool(req, "applied_only"),
		MinGap:      grpcx.OptionalInt(req, "min_gap"),
		Page:        grpcx.Int(req, "page", 1),
		PageSize:    grpcx.Int(req, "page_size", 50),
	}
	items, total, err := h.uc.GetAllRecommendations(ctx, filters)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}

	entries := make([]interface{}, len(items))
	for i := range items {
		m := mapRecommendation(&items[i].StockRecommendation)
		m["current_stock"] = items[i].CurrentStock
		entries[i] = m
	}
	return grpcx.NewStruct(map[string]interface{}{
		"items": entries,
		"total": total,
	})
}

func (h *ForecastHandler) GetTopRecommendations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.uc.GetTopRecommendations(ctx, grpcx.Int(req, "limit", 10))
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	entries := make([]interface{}, len(items))
	for i := range items {
		entries[i] = mapRecommendation(&items[i])
	}
	return grpcx.NewStruct(map[string]interface{}{"items": entries})
}

func (h *ForecastHandler) UpdateVelocity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := grpcx.RequiredString(req, "product_id")
	if err != nil {
		return nil, err
	}
	v, err := h.velocityUC.UpdateVelocity(ctx, productID)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(mapVelocity(v))
}

func (h *ForecastHandler) UpdateAllVelocities(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.velocityUC.UpdateAllVelocities(ctx)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(map[string]interface{}{
		"updated": res.Updated,
		"skipped": res.Skipped,
		"failed":  res.Failed,
	})
}

func (h *ForecastHandler) GetVelocity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := grpcx.RequiredString(req, "product_id")
	if err != nil {
		return nil, err
	}
	v, err := h.velocityUC.GetVelocity(ctx, productID)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(mapVelocity(v))
}

func (h *ForecastHandler) GetVelocityWithForecast(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := grpcx.RequiredString(req, "product_id")
	if err != nil {
		return nil, err
	}
	f, err := h.uc.GetVelocityWithForecast(ctx, productID)
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	return grpcx.NewStruct(map[string]interface{}{
		"velocity":                  mapVelocity(&f.Velocity),
		"price":                     f.Price.String(),
		"estimated_monthly_revenue": f.EstimatedMonthlyRevenue.StringFixed(2),
	})
}

func (h *ForecastHandler) GetTopVelocities(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.uc.GetTopVelocities(ctx, grpcx.Int(req, "limit", 10))
	if err != nil {
		return nil, grpcx.ToStatus(err)
	}
	entries := make([]interface{}, len(items))
	for i := range items {
		entries[i] = mapVelocity(&items[i])
	}
	return grpcx.NewStruct(map[string]interface{}{"items": entries})
}

func mapRecommendation(rec *model.StockRecommendation) map[string]interface{} {
	return map[string]interface{}{
		"id":                      rec.ID,
		"product_id":              rec.ProductID,
		"min_stock":               rec.MinStock,
		"max_stock":               rec.MaxStock,
		"safety_stock":            rec.SafetyStock,
		"reorder_point":           rec.ReorderPoint,
		"recommended_stock":       rec.RecommendedStock,
		"forecasted_velocity":     rec.ForecastedVelocity,
		"lead_time_variance":      rec.LeadTimeVariance,
		"economic_order_quantity": rec.EconomicOrderQuantity,
		"confidence":              rec.Confidence,
		"applied_at":              grpcx.FormatTimePtr(rec.AppliedAt),
		"created_at":              grpcx.FormatTime(rec.CreatedAt),
		"updated_at":              grpcx.FormatTime(rec.UpdatedAt),
	}
}

func mapVelocity(v *model.SalesVelocity) map[string]interface{} {
	return map[string]interface{}{
		"id":                    v.ID,
		"product_id":            v.ProductID,
		"daily_velocity":        v.DailyVelocity,
		"weekly_velocity":       v.WeeklyVelocity,
		"monthly_velocity":      v.MonthlyVelocity,
		"variance_daily_demand": v.VarianceDailyDemand,
		"last_updated":          grpcx.FormatTime(v.LastUpdated),
	}
}
