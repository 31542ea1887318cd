package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/model"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/middleware"
	"github.com/fekuna/omnipos-forecast-service/internal/policy"
	recUC "github.com/fekuna/omnipos-forecast-service/internal/recommendation/usecase"
	"github.com/fekuna/omnipos-forecast-service/internal/store/memory"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	velUC "github.com/fekuna/omnipos-forecast-service/internal/velocity/usecase"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func startServer(t *testing.T) (*grpc.ClientConn, *memory.Store) {
	t.Helper()
	log := logger.NewNop()
	clock := func() time.Time { return now }

	s := memory.New()
	vuc := velUC.NewVelocityUseCase(s.Velocities(), s.Orders(), s.Products(), nil, velUC.Options{
		LookbackDays:          90,
		MinForecastDays:       14,
		WeeklyLookbackWeeks:   12,
		MonthlyLookbackMonths: 6,
		BatchConcurrency:      1,
		Now:                   clock,
	}, log)
	ruc := recUC.NewRecommendationUseCase(s.Recommendations(), s.Velocities(), vuc, s.Products(), s.Suppliers(),
		nil, nil, recUC.Options{
			Policy:              policy.Params{ServiceLevelZ: 1.65, MinStockMargin: 0.2, ReplenishmentCycles: 3},
			DefaultLeadTimeDays: 7,
			DefaultCostRatio:    0.4,
			HoldingCostPercent:  0.25,
			OrderCost:           50,
			BatchConcurrency:    1,
			Now:                 clock,
		}, log)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.ContextInterceptor(),
		middleware.LoggingInterceptor(log),
	))
	NewForecastHandler(ruc, vuc, log).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, s
}

func call(t *testing.T, ctx context.Context, conn *grpc.ClientConn, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp)
	return resp, err
}

func seed(s *memory.Store) {
	s.PutProduct(model.Product{ID: "p1", Price: decimal.NewFromInt(10), Stock: 5, IsActive: true})
	for d := 1; d <= 90; d++ {
		s.AddOrderLine("p1", 2, now.Add(-time.Duration(d)*velocity.Day+time.Hour))
	}
}

func TestGenerateAndApplyOverGRPC(t *testing.T) {
	conn, s := startServer(t)
	seed(s)
	ctx := context.Background()

	resp, err := call(t, ctx, conn, "GenerateRecommendation", map[string]interface{}{"product_id": "p1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Fields["reorder_point"].GetNumberValue(); got != 14 {
		t.Fatalf("expected reorder point 14, got %v", got)
	}
	if resp.Fields["applied_at"].GetKind() == nil {
		t.Fatalf("expected applied_at to be present")
	}
	if _, isNull := resp.Fields["applied_at"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Fatalf("expected null applied_at before apply")
	}

	userCtx := metadata.AppendToOutgoingContext(ctx, "x-user-id", "admin-7")
	resp, err = call(t, userCtx, conn, "ApplyRecommendation", map[string]interface{}{"product_id": "p1"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if resp.Fields["new_stock"].GetNumberValue() != 27 || resp.Fields["change"].GetNumberValue() != 22 {
		t.Fatalf("unexpected apply response %v", resp)
	}

	logs := s.Logs("p1")
	if len(logs) != 1 || logs[0].CreatedBy == nil || *logs[0].CreatedBy != "admin-7" {
		t.Fatalf("expected log attributed to admin-7, got %+v", logs)
	}

	resp, err = call(t, ctx, conn, "ListRecommendations", map[string]interface{}{"applied_only": true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Fields["total"].GetNumberValue() != 1 {
		t.Fatalf("expected one applied recommendation, got %v", resp)
	}
	item := resp.Fields["items"].GetListValue().GetValues()[0].GetStructValue()
	if item.Fields["current_stock"].GetNumberValue() != 27 {
		t.Fatalf("expected joined stock 27, got %v", item)
	}
}

func TestErrorCodes(t *testing.T) {
	conn, s := startServer(t)
	seed(s)
	ctx := context.Background()

	_, err := call(t, ctx, conn, "ApplyRecommendation", map[string]interface{}{"product_id": "p1"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound without a recommendation, got %v", err)
	}
	_, err = call(t, ctx, conn, "GenerateRecommendation", map[string]interface{}{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	_, err = call(t, ctx, conn, "GetVelocity", map[string]interface{}{"product_id": "ghost"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for unknown velocity, got %v", err)
	}
}

func TestBatchAndLeaderboards(t *testing.T) {
	conn, s := startServer(t)
	seed(s)
	s.PutProduct(model.Product{ID: "p2", Stock: 40, IsActive: true})
	ctx := context.Background()

	resp, err := call(t, ctx, conn, "UpdateAllVelocities", nil)
	if err != nil {
		t.Fatalf("velocities: %v", err)
	}
	if resp.Fields["updated"].GetNumberValue() != 1 || resp.Fields["skipped"].GetNumberValue() != 1 {
		t.Fatalf("unexpected velocity batch %v", resp)
	}

	resp, err = call(t, ctx, conn, "GenerateAllRecommendations", nil)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if resp.Fields["generated"].GetNumberValue() != 2 || resp.Fields["failed"].GetNumberValue() != 0 {
		t.Fatalf("unexpected recommendation batch %v", resp)
	}

	resp, err = call(t, ctx, conn, "GetTopRecommendations", map[string]interface{}{"limit": 1})
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	items := resp.Fields["items"].GetListValue().GetValues()
	if len(items) != 1 || items[0].GetStructValue().Fields["product_id"].GetStringValue() != "p2" {
		t.Fatalf("expected p2 (reorder point 20) first, got %v", items)
	}

	resp, err = call(t, ctx, conn, "GetVelocityWithForecast", map[string]interface{}{"product_id": "p1"})
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	// 180 units over the 180-day monthly window: 30 per month at 10
	if resp.Fields["estimated_monthly_revenue"].GetStringValue() != "300.00" {
		t.Fatalf("unexpected revenue %v", resp.Fields["estimated_monthly_revenue"])
	}

	resp, err = call(t, ctx, conn, "GetTopVelocities", nil)
	if err != nil {
		t.Fatalf("top velocities: %v", err)
	}
	// p2 got a zero velocity row while generating its default recommendation
	vels := resp.Fields["items"].GetListValue().GetValues()
	if len(vels) != 2 || vels[0].GetStructValue().Fields["product_id"].GetStringValue() != "p1" {
		t.Fatalf("expected p1 to lead the velocity board, got %v", vels)
	}
}
