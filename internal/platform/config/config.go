package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	Environment           string
	LogLevel              string
	RunMigrations         bool
	MaxBodyBytes          int64
	MetricsEnabled        bool
	ScoringFile           string
	SinkTimeout           time.Duration
	SinkAsync             bool
	JobQueueSize          int
	CSVSinkPath           string
	SheetsSpreadsheetID   string
	SheetsRange           string
	SheetsCredentialsFile string
	SheetsEndpoint        string
	ShutdownTimeout       time.Duration
}

func Load() Config {
	return Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		Environment:           getEnv("APP_ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		RunMigrations:         getEnvBool("RUN_MIGRATIONS", true),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 65536)),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		ScoringFile:           getEnv("SCORING_FILE", ""),
		SinkTimeout:           getEnvDuration("SINK_TIMEOUT", 5*time.Second),
		SinkAsync:             getEnvBool("SINK_ASYNC", false),
		JobQueueSize:          getEnvInt("JOB_QUEUE_SIZE", 128),
		CSVSinkPath:           getEnv("CSV_SINK_PATH", ""),
		SheetsSpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsRange:           getEnv("SHEETS_RANGE", "評価結果!A1"),
		SheetsCredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", ""),
		SheetsEndpoint:        getEnv("SHEETS_ENDPOINT", ""),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.SinkTimeout <= 0 {
		return fmt.Errorf("SINK_TIMEOUT must be positive")
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive")
	}
	if c.SheetsSpreadsheetID != "" && strings.TrimSpace(c.SheetsRange) == "" {
		return fmt.Errorf("SHEETS_RANGE must be set when SHEETS_SPREADSHEET_ID is set")
	}
	if c.Environment == "production" && c.SheetsSpreadsheetID != "" && c.SheetsCredentialsFile == "" && c.SheetsEndpoint == "" {
		return fmt.Errorf("SHEETS_CREDENTIALS_FILE must be set in production when the sheets sink is enabled")
	}
	return nil
}
