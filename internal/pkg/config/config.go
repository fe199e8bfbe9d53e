package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/FACorreiaa/hansikdang-api/internal/app/domain/geo"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type ObservabilityConfig struct {
	ServiceName  string
	MetricsAddr  string
	PprofAddr    string
	OTLPEndpoint string
}

type GeolocationConfig struct {
	BaseURL string
	Timeout time.Duration
	MaxAge  time.Duration
}

type Config struct {
	Repositories  RepositoriesConfig
	Observability ObservabilityConfig
	Geolocation   GeolocationConfig
	ServerPort    string
	RecalcWorkers int
	LogLevel      string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5454"),
				DB:       getEnvOrDefault("POSTGRES_DB", "hansikdang"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		Observability: ObservabilityConfig{
			ServiceName:  "hansikdang-api",
			MetricsAddr:  getEnvOrDefault("METRICS_ADDR", ":9092"),
			PprofAddr:    getEnvOrDefault("PPROF_ADDR", ":6060"),
			OTLPEndpoint: getEnvOrDefault("OTEL_ENDPOINT", ""),
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8091"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}

	var err error
	cfg.Geolocation.BaseURL = getEnvOrDefault("GEOIP_BASE_URL", geo.DefaultIPLocatorURL)
	if cfg.Geolocation.Timeout, err = getDurationOrDefault("GEOLOCATION_TIMEOUT", geo.DefaultLocationTimeout); err != nil {
		return nil, err
	}
	if cfg.Geolocation.MaxAge, err = getDurationOrDefault("GEOLOCATION_MAX_AGE", geo.DefaultLocationMaxAge); err != nil {
		return nil, err
	}
	if cfg.RecalcWorkers, err = getIntOrDefault("RECALC_WORKERS", 8); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PositionOptions returns the options location lookups are made with.
func (c *Config) PositionOptions() geo.PositionOptions {
	return geo.PositionOptions{
		Timeout:    c.Geolocation.Timeout,
		MaximumAge: c.Geolocation.MaxAge,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative duration such as 10s", key, value)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive integer", key, value)
	}
	return n, nil
}
