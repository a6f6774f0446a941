package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/district-weather-monitor/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	PollIntervalMinutes int

	// Open-Meteo provider configuration.
	OpenMeteoBaseURL  string
	OpenMeteoTimezone string
	OpenMeteoTimeout  time.Duration
	WeatherCacheSize  int // live chart cache entries, 0 disables

	Thresholds domain.Thresholds

	// Storage. An empty DatabaseURL selects the in-memory store and the
	// synthetic baselines built from DistrictsFile.
	DatabaseURL   string
	DBAutoMigrate bool
	DistrictsFile string

	// Alert feed publishing (feature-flagged via KAFKA_BROKERS).
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool

	AlertFeedLimit int
	ChartPoints    int
}

// Load reads configuration from environment variables (optionally .env),
// applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	timeout, err := parseDuration("OPEN_METEO_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	interval, err := parseInt("POLL_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("WEATHER_CACHE_SIZE", 0)
	if err != nil {
		return nil, err
	}
	if cacheSize < 0 {
		return nil, errors.New("invalid WEATHER_CACHE_SIZE: must not be negative")
	}

	thresholds, err := parseThresholds()
	if err != nil {
		return nil, err
	}

	feedLimit, err := parsePositiveInt("ALERT_FEED_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	chartPoints, err := parsePositiveInt("CHART_POINTS", domain.WindowHours)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PollIntervalMinutes: max(1, interval),

		OpenMeteoBaseURL:  sharedcfg.EnvOrDefault("OPEN_METEO_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		OpenMeteoTimezone: sharedcfg.EnvOrDefault("OPEN_METEO_TIMEZONE", "Africa/Kigali"),
		OpenMeteoTimeout:  timeout,
		WeatherCacheSize:  cacheSize,

		Thresholds: thresholds,

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBAutoMigrate: os.Getenv("DB_AUTO_MIGRATE") == "true",
		DistrictsFile: sharedcfg.EnvOrDefault("DISTRICTS_FILE", "data/districts_sample.json"),

		KafkaBrokers:    brokers,
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "district-alerts"),
		KafkaEnabled:    len(brokers) > 0,

		AlertFeedLimit: feedLimit,
		ChartPoints:    chartPoints,
	}

	if cfg.OpenMeteoBaseURL == "" {
		return nil, errors.New("OPEN_METEO_BASE_URL is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.DatabaseURL == "" && cfg.DistrictsFile == "" {
		return nil, errors.New("DISTRICTS_FILE is required when DATABASE_URL is not set")
	}

	return cfg, nil
}

func parseThresholds() (domain.Thresholds, error) {
	def := domain.DefaultThresholds()

	flood, err := parseFloat("RAINFALL_FLOOD_MULTIPLIER", def.FloodMultiplier)
	if err != nil {
		return domain.Thresholds{}, err
	}
	warning, err := parseFloat("RAINFALL_WARNING_MULTIPLIER", def.WarningMultiplier)
	if err != nil {
		return domain.Thresholds{}, err
	}
	heat, err := parseFloat("TEMPERATURE_HEAT_THRESHOLD", def.HeatThresholdC)
	if err != nil {
		return domain.Thresholds{}, err
	}

	t := domain.Thresholds{FloodMultiplier: flood, WarningMultiplier: warning, HeatThresholdC: heat}
	if err := t.Validate(); err != nil {
		return domain.Thresholds{}, fmt.Errorf("invalid RAINFALL_*_MULTIPLIER: %w", err)
	}
	return t, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := parseInt(key, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
