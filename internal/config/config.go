package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// seasonLayout is interpreted in the configured time zone.
const seasonLayout = "2006-01-02T15:04:05"

type Config struct {
	RiotAPIKey        string        `validate:"required"`
	DBPath            string        `validate:"required"`
	ServerPort        string        `validate:"required,numeric"`
	LogLevel          string        `validate:"oneof=trace debug info warn error"`
	Timezone          string        `validate:"required"`
	PollInterval      time.Duration `validate:"min=1m"`
	MatchFetchWorkers int           `validate:"min=1,max=32"`
	GriefParamsPath   string

	Location    *time.Location `validate:"-"`
	SeasonStart time.Time      `validate:"-"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("MATCH_FETCH_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid MATCH_FETCH_WORKERS: %w", err)
	}

	cfg := &Config{
		RiotAPIKey:        getEnv("RIOT_API_KEY", ""),
		DBPath:            getEnv("DB_PATH", "league.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Timezone:          getEnv("TIMEZONE", "America/New_York"),
		PollInterval:      pollInterval,
		MatchFetchWorkers: workers,
		GriefParamsPath:   getEnv("GRIEF_PARAMS_PATH", ""),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.SeasonStart, err = time.ParseInLocation(seasonLayout, getEnv("SEASON_START", "2026-01-08T03:00:00"), cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid SEASON_START: %w", err)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("timezone", cfg.Timezone).
		Time("season_start", cfg.SeasonStart).
		Dur("poll_interval", cfg.PollInterval).
		Int("match_fetch_workers", cfg.MatchFetchWorkers).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
