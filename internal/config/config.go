package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/cookcart/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

type Config struct {
	HTTPPort           string
	GRPCPort           string
	LogEnv             string
	LogLevel           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration

	Backend    string
	BackendURL string
	Postgres   repository.Credentials

	KafkaBrokers []string
	DeliveryFee  decimal.Decimal

	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration
}

func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	fee, err := decimal.NewFromString(getEnv("DELIVERY_FEE", "30"))
	if err != nil || fee.IsNegative() {
		return nil, fmt.Errorf("invalid DELIVERY_FEE %q", os.Getenv("DELIVERY_FEE"))
	}
	ttl, err := time.ParseDuration(getEnv("CART_CACHE_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CART_CACHE_TTL: %w", err)
	}
	idle, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "30m"))
	if err != nil || idle <= 0 {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT %q", os.Getenv("SESSION_IDLE_TIMEOUT"))
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50060"),
		LogEnv:             getEnv("LOG_ENV", "prod"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "cookcart"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CartCacheTTL:  ttl,

		Backend:    strings.ToLower(getEnv("ORDER_BACKEND", BackendPostgres)),
		BackendURL: getEnv("BACKEND_URL", "http://localhost:8080/api"),
		Postgres: repository.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "cookcart"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		},

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		DeliveryFee:  fee,

		SessionIdleTimeout:   idle,
		SessionSweepInterval: time.Minute,
	}

	if cfg.Backend != BackendPostgres && cfg.Backend != BackendREST {
		return nil, fmt.Errorf("invalid ORDER_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
