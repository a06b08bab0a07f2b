package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("EARTHDATA_USERNAME", "testuser")
	t.Setenv("EARTHDATA_PASSWORD", "testpass")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "https://goldsmr4.gesdisc.eosdis.nasa.gov/data/MERRA2/M2SDNXSLV.5.12.4", cfg.MerraBaseURL)
	assert.Equal(t, "https://disc.gsfc.nasa.gov/service/subset/jsonwsp", cfg.SubsetEndpoint)
	assert.Equal(t, "cache", cfg.CacheDir)
	assert.Equal(t, 15*time.Second, cfg.ListingTimeout)
	assert.Equal(t, 30*time.Second, cfg.DownloadTimeout)

	assert.Equal(t, 20, cfg.YearsBack)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 120, cfg.MaxPollAttempts)
	assert.Equal(t, 20, cfg.PageSize)

	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_CustomEnv(t *testing.T) {
	setCredentials(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MERRA_BASE_URL", "http://localhost:8081/data")
	t.Setenv("CACHE_DIR", "/var/cache/climatology")
	t.Setenv("LISTING_TIMEOUT", "5s")
	t.Setenv("DOWNLOAD_TIMEOUT", "60s")
	t.Setenv("YEARS_BACK", "30")
	t.Setenv("JOB_POLL_INTERVAL", "1s")
	t.Setenv("JOB_MAX_POLL_ATTEMPTS", "10")
	t.Setenv("JOB_PAGE_SIZE", "50")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-reports")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:8081/data", cfg.MerraBaseURL)
	assert.Equal(t, "/var/cache/climatology", cfg.CacheDir)
	assert.Equal(t, 5*time.Second, cfg.ListingTimeout)
	assert.Equal(t, 60*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 30, cfg.YearsBack)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 10, cfg.MaxPollAttempts)
	assert.Equal(t, 50, cfg.PageSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-reports", cfg.KafkaTopic)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("EARTHDATA_USERNAME", "")
	t.Setenv("EARTHDATA_PASSWORD", "")
	t.Setenv("EARTHDATA_NETRC", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Earthdata credentials required")
}

func TestLoad_NetrcAloneSuffices(t *testing.T) {
	t.Setenv("EARTHDATA_USERNAME", "")
	t.Setenv("EARTHDATA_PASSWORD", "")
	t.Setenv("EARTHDATA_NETRC", "/home/user/.netrc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/home/user/.netrc", cfg.NetrcPath)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setCredentials(t)
	t.Setenv("JOB_POLL_INTERVAL", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOB_POLL_INTERVAL")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	setCredentials(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_RejectsNonPositiveYearsBack(t *testing.T) {
	setCredentials(t)
	t.Setenv("YEARS_BACK", "0")

	_, err := Load()
	require.Error(t, err)
}
