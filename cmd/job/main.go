// Command job runs one forecast cycle and exits. It is meant for cron or a
// Kubernetes CronJob when the in-process scheduler is disabled.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/fekuna/omnipos-forecast-service/config"
	"github.com/fekuna/omnipos-forecast-service/internal/app"
	"github.com/fekuna/omnipos-forecast-service/internal/scheduler"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	task := flag.String("task", "all", "velocities, recommendations or all")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger := app.NewLogger(cfg)
	defer appLogger.Sync()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer a.Close()

	switch *task {
	case "velocities":
		res, err := a.VelocityUC.UpdateAllVelocities(ctx)
		if err != nil {
			appLogger.Fatal("Velocity update failed", zap.Error(err))
		}
		appLogger.Info("Velocity update finished",
			zap.Int("updated", res.Updated), zap.Int("skipped", res.Skipped), zap.Int("failed", res.Failed))
	case "recommendations":
		res, err := a.RecommendUC.GenerateAllRecommendations(ctx)
		if err != nil {
			appLogger.Fatal("Recommendation generation failed", zap.Error(err))
		}
		appLogger.Info("Recommendation generation finished",
			zap.Int("generated", res.Generated), zap.Int("updated", res.Updated), zap.Int("failed", res.Failed))
	case "all":
		if err := scheduler.NewScheduler(a.VelocityUC, a.RecommendUC, 0, appLogger).RunOnce(ctx); err != nil {
			appLogger.Fatal("Forecast cycle failed", zap.Error(err))
		}
	default:
		appLogger.Fatal("Unknown task", zap.String("task", *task))
	}
}
