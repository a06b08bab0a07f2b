package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// MERRA-2 archive access.
	MerraBaseURL    string
	SubsetEndpoint  string
	CacheDir        string
	ListingTimeout  time.Duration
	DownloadTimeout time.Duration

	// Earthdata credentials: either a netrc-style machine file or an explicit
	// username/password pair. At least one must be configured.
	NetrcPath         string
	EarthdataUsername string
	EarthdataPassword string

	// Lookup behaviour.
	YearsBack       int
	PollInterval    time.Duration
	MaxPollAttempts int
	PageSize        int

	// Optional report publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honoured when present.
func Load() (*Config, error) {
	// Missing .env is the normal case in deployment; only log-worthy in dev.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	listingTimeout, err := parseDuration("LISTING_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := parseDuration("DOWNLOAD_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("JOB_POLL_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MerraBaseURL:    envOrDefault("MERRA_BASE_URL", "https://goldsmr4.gesdisc.eosdis.nasa.gov/data/MERRA2/M2SDNXSLV.5.12.4"),
		SubsetEndpoint:  envOrDefault("SUBSET_ENDPOINT", "https://disc.gsfc.nasa.gov/service/subset/jsonwsp"),
		CacheDir:        envOrDefault("CACHE_DIR", "cache"),
		ListingTimeout:  listingTimeout,
		DownloadTimeout: downloadTimeout,

		NetrcPath:         os.Getenv("EARTHDATA_NETRC"),
		EarthdataUsername: os.Getenv("EARTHDATA_USERNAME"),
		EarthdataPassword: os.Getenv("EARTHDATA_PASSWORD"),

		YearsBack:       envOrDefaultInt("YEARS_BACK", 20),
		PollInterval:    pollInterval,
		MaxPollAttempts: envOrDefaultInt("JOB_MAX_POLL_ATTEMPTS", 120),
		PageSize:        envOrDefaultInt("JOB_PAGE_SIZE", 20),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "climatology-reports"),
	}

	if cfg.NetrcPath == "" && (cfg.EarthdataUsername == "" || cfg.EarthdataPassword == "") {
		return nil, errors.New("Earthdata credentials required: set EARTHDATA_NETRC or EARTHDATA_USERNAME and EARTHDATA_PASSWORD")
	}
	if cfg.YearsBack < 1 {
		return nil, errors.New("YEARS_BACK must be at least 1")
	}
	if cfg.MaxPollAttempts < 1 {
		return nil, errors.New("JOB_MAX_POLL_ATTEMPTS must be at least 1")
	}
	if cfg.PageSize < 1 {
		return nil, errors.New("JOB_PAGE_SIZE must be at least 1")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
