// Package app wires configuration, infrastructure clients and use cases for
// the service binaries.
package app

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-forecast-service/config"
	"github.com/fekuna/omnipos-forecast-service/internal/inventory"
	invRepoPkg "github.com/fekuna/omnipos-forecast-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-forecast-service/internal/inventory/usecase"
	orderRepoPkg "github.com/fekuna/omnipos-forecast-service/internal/order/repository"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/broker"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-forecast-service/internal/pkg/postgres"
	prodRepoPkg "github.com/fekuna/omnipos-forecast-service/internal/product/repository"
	"github.com/fekuna/omnipos-forecast-service/internal/recommendation"
	recRepoPkg "github.com/fekuna/omnipos-forecast-service/internal/recommendation/repository"
	recUCPkg "github.com/fekuna/omnipos-forecast-service/internal/recommendation/usecase"
	supRepoPkg "github.com/fekuna/omnipos-forecast-service/internal/supplier/repository"
	"github.com/fekuna/omnipos-forecast-service/internal/velocity"
	velRepoPkg "github.com/fekuna/omnipos-forecast-service/internal/velocity/repository"
	velUCPkg "github.com/fekuna/omnipos-forecast-service/internal/velocity/usecase"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// App owns the shared clients. Close releases them in reverse order.
type App struct {
	DB          *sqlx.DB
	Redis       *cache.RedisClient
	Producer    *broker.KafkaProducer
	VelocityUC  velocity.UseCase
	RecommendUC recommendation.UseCase
	InventoryUC inventory.UseCase

	logger  logger.ZapLogger
	closers []func() error
}

func NewLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
	}
	return logger.NewZapLogger(logConfig)
}

// New connects to Postgres and, when enabled, Redis and the Kafka producer.
// Redis and Kafka failures degrade to running without them.
func New(ctx context.Context, cfg *config.Config, log logger.ZapLogger) (*App, error) {
	a := &App{logger: log}

	db, err := postgres.NewPostgres(ctx, &postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	log.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// Repositories
	prodRepo := prodRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)
	supRepo := supRepoPkg.NewPGRepository(db)
	velRepo := velRepoPkg.NewPGRepository(db)
	recRepo := recRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)

	// Optional infrastructure; interfaces stay nil when disabled
	var (
		velCache  velUCPkg.Cache
		locker    recUCPkg.Locker
		publisher recUCPkg.Publisher
	)

	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(ctx, &cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Could not connect to Redis, running without lock and cache", zap.Error(err))
		} else {
			a.Redis = redisClient
			a.closers = append(a.closers, redisClient.Close)
			velCache = redisClient
			locker = redisClient
			log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RecommendationTopic,
		})
		a.Producer = producer
		a.closers = append(a.closers, producer.Close)
		publisher = producer
		log.Info("Kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.RecommendationTopic))
	}

	// Use cases
	f := cfg.Forecast
	a.VelocityUC = velUCPkg.NewVelocityUseCase(velRepo, orderRepo, prodRepo, velCache, velUCPkg.Options{
		LookbackDays:          f.LookbackDays,
		MinForecastDays:       f.MinForecastDays,
		WeeklyLookbackWeeks:   f.WeeklyLookbackWeeks,
		MonthlyLookbackMonths: f.MonthlyLookbackMonths,
		BatchConcurrency:      f.BatchConcurrency,
	}, log)

	a.RecommendUC = recUCPkg.NewRecommendationUseCase(recRepo, velRepo, a.VelocityUC, prodRepo, supRepo,
		locker, publisher, recUCPkg.Options{
			Policy:              f.PolicyParams(),
			DefaultLeadTimeDays: f.DefaultLeadTimeDays,
			DefaultCostRatio:    f.DefaultCostRatio,
			HoldingCostPercent:  f.HoldingCostPercent,
			OrderCost:           f.OrderCost,
			BatchConcurrency:    f.BatchConcurrency,
		}, log)

	a.InventoryUC = invUCPkg.NewInventoryUseCase(invRepo, log)

	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
}
