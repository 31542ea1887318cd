package middleware

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-forecast-service/internal/auth"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/omnipos.forecast.v1.ForecastService/ApplyRecommendation"}

func TestContextInterceptorSetsUser(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-user-id", "u1"))
	var seen string
	_, err := ContextInterceptor()(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = auth.GetUserID(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "u1" {
		t.Fatalf("expected u1, got %q", seen)
	}
}

func TestLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	intercept := LoggingInterceptor(logger.FromZap(zap.New(core)))

	_, _ = intercept(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	_, err := intercept(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("error should pass through, got %v", err)
	}

	if logs.FilterMessage("gRPC call").Len() != 1 {
		t.Fatalf("expected one success log")
	}
	failed := logs.FilterMessage("gRPC call failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["code"] != "NotFound" {
		t.Fatalf("expected a NotFound failure log, got %v", failed)
	}
}
