package config

import (
	"strings"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	"github.com/fekuna/omnipos-forecast-service/internal/policy"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Tracing   TracingConfig
	Scheduler SchedulerConfig
	Forecast  ForecastConfig
}

type ServerConfig struct {
	AppEnv   string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled             bool
	Brokers             []string
	OrderTopic          string
	GroupID             string
	RecommendationTopic string
}

type TracingConfig struct {
	Endpoint   string
	URLPath    string
	AuthHeader string
	Insecure   bool
}

type SchedulerConfig struct {
	Interval time.Duration
}

// ForecastConfig holds the inventory policy constants.
type ForecastConfig struct {
	LookbackDays          int
	MinForecastDays       int
	WeeklyLookbackWeeks   int
	MonthlyLookbackMonths int
	ServiceLevelZ         float64
	DefaultLeadTimeDays   float64
	DefaultCostRatio      float64
	HoldingCostPercent    float64
	OrderCost             float64
	MinStockMargin        float64
	ReplenishmentCycles   float64
	BatchConcurrency      int
}

var defaults = map[string]interface{}{
	"APP_ENV":   "dev",
	"GRPC_PORT": ":8083",

	"LOGGER_LEVEL":              "debug",
	"LOGGER_ENCODING":           "console",
	"LOGGER_DISABLE_CALLER":     false,
	"LOGGER_DISABLE_STACKTRACE": true,

	"POSTGRES_HOST":               "localhost",
	"POSTGRES_PORT":               "5433",
	"POSTGRES_USER":               "omnipos",
	"POSTGRES_PASSWORD":           "omnipos",
	"POSTGRES_DB":                 "omnipos_product",
	"POSTGRES_SSLMODE":            "disable",
	"POSTGRES_MAX_OPEN_CONNS":     10,
	"POSTGRES_MAX_IDLE_CONNS":     5,
	"POSTGRES_CONN_MAX_LIFETIME":  300,
	"POSTGRES_CONN_MAX_IDLE_TIME": 60,

	"REDIS_ENABLED":  true,
	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"KAFKA_ENABLED":               true,
	"KAFKA_BROKERS":               "localhost:9092",
	"KAFKA_TOPIC_ORDERS":          "orders.events",
	"KAFKA_GROUP_FORECAST":        "forecast",
	"KAFKA_TOPIC_RECOMMENDATIONS": "forecast.recommendations",

	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_EXPORTER_OTLP_URL_PATH": "/v1/traces",
	"OTEL_EXPORTER_OTLP_AUTH":     "",
	"OTEL_EXPORTER_OTLP_INSECURE": true,

	"SCHEDULER_INTERVAL": "6h",

	"FORECAST_LOOKBACK_DAYS":          90,
	"FORECAST_MIN_DAYS":               14,
	"FORECAST_WEEKLY_WEEKS":           12,
	"FORECAST_MONTHLY_MONTHS":         6,
	"FORECAST_SERVICE_LEVEL_Z":        1.65,
	"FORECAST_DEFAULT_LEAD_TIME_DAYS": 7,
	"FORECAST_DEFAULT_COST_RATIO":     0.4,
	"FORECAST_HOLDING_COST_PERCENT":   0.25,
	"FORECAST_ORDER_COST":             50,
	"FORECAST_MIN_STOCK_MARGIN":       0.2,
	"FORECAST_REPLENISHMENT_CYCLES":   3,
	"FORECAST_BATCH_CONCURRENCY":      4,
}

// LoadEnv reads configuration from the environment over built-in defaults.
// Call godotenv.Load first to pick up a .env file.
func LoadEnv() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			AppEnv:   v.GetString("APP_ENV"),
			GRPCPort: v.GetString("GRPC_PORT"),
		},
		Logger: LoggerConfig{
			Level:             v.GetString("LOGGER_LEVEL"),
			Encoding:          v.GetString("LOGGER_ENCODING"),
			DisableCaller:     v.GetBool("LOGGER_DISABLE_CALLER"),
			DisableStacktrace: v.GetBool("LOGGER_DISABLE_STACKTRACE"),
		},
		Postgres: PostgresConfig{
			Host:            v.GetString("POSTGRES_HOST"),
			Port:            v.GetString("POSTGRES_PORT"),
			User:            v.GetString("POSTGRES_USER"),
			Password:        v.GetString("POSTGRES_PASSWORD"),
			DBName:          v.GetString("POSTGRES_DB"),
			SSLMode:         v.GetString("POSTGRES_SSLMODE"),
			MaxOpenConns:    v.GetInt("POSTGRES_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("POSTGRES_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetInt("POSTGRES_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetInt("POSTGRES_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Enabled:             v.GetBool("KAFKA_ENABLED"),
			Brokers:             splitList(v.GetString("KAFKA_BROKERS")),
			OrderTopic:          v.GetString("KAFKA_TOPIC_ORDERS"),
			GroupID:             v.GetString("KAFKA_GROUP_FORECAST"),
			RecommendationTopic: v.GetString("KAFKA_TOPIC_RECOMMENDATIONS"),
		},
		Tracing: TracingConfig{
			Endpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			URLPath:    v.GetString("OTEL_EXPORTER_OTLP_URL_PATH"),
			AuthHeader: v.GetString("OTEL_EXPORTER_OTLP_AUTH"),
			Insecure:   v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		},
		Scheduler: SchedulerConfig{
			Interval: v.GetDuration("SCHEDULER_INTERVAL"),
		},
		Forecast: ForecastConfig{
			LookbackDays:          v.GetInt("FORECAST_LOOKBACK_DAYS"),
			MinForecastDays:       v.GetInt("FORECAST_MIN_DAYS"),
			WeeklyLookbackWeeks:   v.GetInt("FORECAST_WEEKLY_WEEKS"),
			MonthlyLookbackMonths: v.GetInt("FORECAST_MONTHLY_MONTHS"),
			ServiceLevelZ:         v.GetFloat64("FORECAST_SERVICE_LEVEL_Z"),
			DefaultLeadTimeDays:   v.GetFloat64("FORECAST_DEFAULT_LEAD_TIME_DAYS"),
			DefaultCostRatio:      v.GetFloat64("FORECAST_DEFAULT_COST_RATIO"),
			HoldingCostPercent:    v.GetFloat64("FORECAST_HOLDING_COST_PERCENT"),
			OrderCost:             v.GetFloat64("FORECAST_ORDER_COST"),
			MinStockMargin:        v.GetFloat64("FORECAST_MIN_STOCK_MARGIN"),
			ReplenishmentCycles:   v.GetFloat64("FORECAST_REPLENISHMENT_CYCLES"),
			BatchConcurrency:      v.GetInt("FORECAST_BATCH_CONCURRENCY"),
		},
	}
}

// PolicyParams extracts the stock policy constants.
func (c *ForecastConfig) PolicyParams() policy.Params {
	return policy.Params{
		ServiceLevelZ:       c.ServiceLevelZ,
		MinStockMargin:      c.MinStockMargin,
		ReplenishmentCycles: c.ReplenishmentCycles,
	}
}

// Validate reports the first invalid setting as an apperror.ConfigurationError.
func (c *Config) Validate() error {
	f := c.Forecast
	switch {
	case f.LookbackDays <= 0:
		return apperror.Configuration("FORECAST_LOOKBACK_DAYS", "must be > 0")
	case f.MinForecastDays < 0:
		return apperror.Configuration("FORECAST_MIN_DAYS", "must be >= 0")
	case f.WeeklyLookbackWeeks <= 0:
		return apperror.Configuration("FORECAST_WEEKLY_WEEKS", "must be > 0")
	case f.MonthlyLookbackMonths <= 0:
		return apperror.Configuration("FORECAST_MONTHLY_MONTHS", "must be > 0")
	case f.DefaultLeadTimeDays < 0:
		return apperror.Configuration("FORECAST_DEFAULT_LEAD_TIME_DAYS", "must be >= 0")
	case f.DefaultCostRatio <= 0:
		return apperror.Configuration("FORECAST_DEFAULT_COST_RATIO", "must be > 0")
	case f.HoldingCostPercent <= 0:
		return apperror.Configuration("FORECAST_HOLDING_COST_PERCENT", "must be > 0")
	case f.OrderCost <= 0:
		return apperror.Configuration("FORECAST_ORDER_COST", "must be > 0")
	case f.BatchConcurrency < 1:
		return apperror.Configuration("FORECAST_BATCH_CONCURRENCY", "must be >= 1")
	case c.Scheduler.Interval < 0:
		return apperror.Configuration("SCHEDULER_INTERVAL", "must be >= 0")
	case c.Kafka.Enabled && len(c.Kafka.Brokers) == 0:
		return apperror.Configuration("KAFKA_BROKERS", "required when KAFKA_ENABLED")
	}
	return f.PolicyParams().Validate()
}

func splitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
