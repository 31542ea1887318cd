package config

import (
	"testing"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()

	if cfg.Forecast.LookbackDays != 90 || cfg.Forecast.MinForecastDays != 14 {
		t.Fatalf("unexpected lookback defaults %+v", cfg.Forecast)
	}
	if cfg.Forecast.ServiceLevelZ != 1.65 || cfg.Forecast.DefaultCostRatio != 0.4 {
		t.Fatalf("unexpected policy defaults %+v", cfg.Forecast)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Fatalf("unexpected scheduler interval %v", cfg.Scheduler.Interval)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FORECAST_LOOKBACK_DAYS", "30")
	t.Setenv("FORECAST_SERVICE_LEVEL_Z", "2.33")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SCHEDULER_INTERVAL", "15m")
	t.Setenv("REDIS_ENABLED", "false")

	cfg := LoadEnv()
	if cfg.Forecast.LookbackDays != 30 || cfg.Forecast.ServiceLevelZ != 2.33 {
		t.Fatalf("env not applied: %+v", cfg.Forecast)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Scheduler.Interval != 15*time.Minute || cfg.Redis.Enabled {
		t.Fatalf("unexpected scheduler/redis %+v %+v", cfg.Scheduler, cfg.Redis)
	}
	if p := cfg.Forecast.PolicyParams(); p.ServiceLevelZ != 2.33 || p.ReplenishmentCycles != 3 {
		t.Fatalf("unexpected policy params %+v", p)
	}
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"lookback", func(c *Config) { c.Forecast.LookbackDays = 0 }},
		{"holding cost", func(c *Config) { c.Forecast.HoldingCostPercent = 0 }},
		{"order cost", func(c *Config) { c.Forecast.OrderCost = -1 }},
		{"concurrency", func(c *Config) { c.Forecast.BatchConcurrency = 0 }},
		{"margin", func(c *Config) { c.Forecast.MinStockMargin = 1 }},
		{"cycles", func(c *Config) { c.Forecast.ReplenishmentCycles = 0.5 }},
		{"brokers", func(c *Config) { c.Kafka.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadEnv()
			tt.mutate(cfg)
			if err := cfg.Validate(); !apperror.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
