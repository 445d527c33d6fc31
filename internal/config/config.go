package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Engine   EngineConfig
	Avito    AvitoConfig
	Database DatabaseConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// EngineConfig holds reconciliation loop parameters.
type EngineConfig struct {
	SnapshotTTL          time.Duration
	ReconcileInterval    time.Duration
	MaxConcurrentSources int
	SearchTimeout        time.Duration
}

// AvitoConfig holds advertising platform client parameters.
type AvitoConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DatabaseConfig selects the persistence backend. An empty URL means
// the in-memory stores are used.
type DatabaseConfig struct {
	URL string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultSnapshotTTL       = 5 * time.Minute
	defaultReconcileInterval = 5 * time.Minute
	defaultMaxConcurrent     = 3
	defaultSearchTimeout     = 20 * time.Second

	defaultAvitoBaseURL = "https://api.avito.ru"
	defaultAvitoTimeout = 30 * time.Second
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Engine: EngineConfig{
			SnapshotTTL:          defaultSnapshotTTL,
			ReconcileInterval:    defaultReconcileInterval,
			MaxConcurrentSources: defaultMaxConcurrent,
			SearchTimeout:        defaultSearchTimeout,
		},
		Avito: AvitoConfig{
			BaseURL: getEnv("AVITO_API_BASE_URL", defaultAvitoBaseURL),
			Timeout: defaultAvitoTimeout,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("SNAPSHOT_TTL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SNAPSHOT_TTL_SECONDS: %w", err)
		}
		cfg.Engine.SnapshotTTL = d
	}

	if v := os.Getenv("RECONCILE_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RECONCILE_INTERVAL_SECONDS: %w", err)
		}
		cfg.Engine.ReconcileInterval = d
	}

	if v := os.Getenv("RECONCILE_MAX_CONCURRENT_SOURCES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid RECONCILE_MAX_CONCURRENT_SOURCES: must be a positive integer")
		}
		cfg.Engine.MaxConcurrentSources = n
	}

	if v := os.Getenv("SEARCH_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SEARCH_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Engine.SearchTimeout = d
	}

	if v := os.Getenv("AVITO_API_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AVITO_API_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Avito.Timeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
