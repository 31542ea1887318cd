package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-forecast-service/config"
	"github.com/fekuna/omnipos-forecast-service/internal/app"
	invH "github.com/fekuna/omnipos-forecast-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-forecast-service/internal/inventory/listener"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/broker"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/middleware"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/tracing"
	recH "github.com/fekuna/omnipos-forecast-service/internal/recommendation/handler"
	"github.com/fekuna/omnipos-forecast-service/internal/scheduler"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger := app.NewLogger(cfg)
	defer appLogger.Sync()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2.5 Initialize Tracing
	shutdownTracing, err := tracing.Setup(ctx, &tracing.Config{
		Endpoint:   cfg.Tracing.Endpoint,
		URLPath:    cfg.Tracing.URLPath,
		AuthHeader: cfg.Tracing.AuthHeader,
		Insecure:   cfg.Tracing.Insecure,
	})
	if err != nil {
		appLogger.Warn("Could not initialize tracing", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	// 3. Connect to Database, Redis, Kafka producer and build UseCases
	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer a.Close()

	// 4. Initialize Listeners
	if cfg.Kafka.Enabled {
		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrderTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.OrderTopic))

		orderListener := invListenerPkg.NewOrderListener(kafkaConsumer, a.VelocityUC, appLogger)
		go orderListener.Start(ctx)
	}

	// 5. Start Scheduler
	sched := scheduler.NewScheduler(a.VelocityUC, a.RecommendUC, cfg.Scheduler.Interval, appLogger)
	go sched.Start(ctx)

	// 6. Initialize Handlers
	forecastHandler := recH.NewForecastHandler(a.RecommendUC, a.VelocityUC, appLogger)
	invHandler := invH.NewInventoryHandler(a.InventoryUC, appLogger)

	// 7. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.ContextInterceptor(),
			middleware.LoggingInterceptor(appLogger),
		),
	)

	// Register Services
	forecastHandler.Register(grpcServer)
	invHandler.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(recH.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(invH.ServiceName, healthpb.HealthCheckResponse_SERVING)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
