// Package config loads the process's environment-variable
// configuration once at startup into an immutable struct, grounded on
// internal/app/config.go + internal/platform/envutil (teacher's
// loader shape) and backend/config.py's Config/DevelopmentConfig/
// ProductionConfig/get_config (environment-profile defaulting).
package config

import (
	"strings"
	"time"

	"github.com/qualgent/job-orchestrator/internal/platform/envutil"
)

// Config is immutable after Load returns.
type Config struct {
	Host  string
	Port  string
	Debug bool

	Environment string // development | production

	UseRedis bool
	RedisURL string

	MaxRetries       int
	WorkerTimeout    time.Duration
	ScheduleInterval time.Duration

	LogMode string

	MetricsEnabled bool

	RetentionHours    time.Duration
	RetentionInterval time.Duration

	CORSOrigins []string
}

// Load reads every variable from the process environment, applying
// backend/config.py's per-environment defaults where the original
// distinguishes development from production.
func Load() Config {
	env := strings.ToLower(envutil.String("ENVIRONMENT", "development"))
	prod := env == "production"

	return Config{
		Host:  envutil.String("HOST", "0.0.0.0"),
		Port:  envutil.String("PORT", "8080"),
		Debug: envutil.Bool("DEBUG", !prod),

		Environment: env,

		UseRedis: envutil.Bool("USE_REDIS", prod),
		RedisURL: envutil.String("REDIS_URL", "redis://localhost:6379/0"),

		MaxRetries:       envutil.Int("MAX_RETRIES", 3),
		WorkerTimeout:    time.Duration(envutil.Int("WORKER_TIMEOUT", 300)) * time.Second,
		ScheduleInterval: time.Duration(envutil.Int("SCHEDULE_INTERVAL", 5)) * time.Second,

		LogMode: envutil.String("LOG_MODE", logModeFor(prod)),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),

		RetentionHours:    time.Duration(envutil.Int("RETENTION_HOURS", 24)) * time.Hour,
		RetentionInterval: time.Duration(envutil.Int("RETENTION_INTERVAL", 3600)) * time.Second,

		CORSOrigins: envutil.List("CORS_ORIGINS", nil),
	}
}

func logModeFor(prod bool) string {
	if prod {
		return "production"
	}
	return "development"
}
