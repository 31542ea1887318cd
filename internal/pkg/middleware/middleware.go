package middleware

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/auth"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ContextInterceptor copies caller identity from metadata into the context.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if val := md.Get("x-user-id"); len(val) > 0 {
				ctx = auth.WithUserID(ctx, val[0])
			}
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs one line per unary call.
func LoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			log.Warn("gRPC call failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		log.Debug("gRPC call", fields...)
		return resp, err
	}
}
