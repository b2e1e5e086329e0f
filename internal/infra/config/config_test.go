package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("LISTING_PLATFORMS", "")
	t.Setenv("RETRY_BACKOFF", "")
	t.Setenv("DEFAULT_CURRENCY", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("S3_PUBLIC_ENDPOINT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.ListingPlatforms)
	assert.Equal(t, cfg.S3Endpoint, cfg.S3PublicEndpoint)
	assert.Error(t, cfg.RequireKafka())
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("LISTING_PLATFORMS", "Airbnb, VRBO ,,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IDEMP_TTL", "2h")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Airbnb", "VRBO"}, cfg.ListingPlatforms)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Hour, cfg.IdempotencyTTL)
	assert.NoError(t, cfg.RequireKafka())
}

func TestLoadValidatesDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_DSN")

	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err = Load()
	assert.ErrorContains(t, err, "MONGO_URI")

	t.Setenv("STORAGE_DRIVER", "cassandra")
	_, err = Load()
	assert.ErrorContains(t, err, "STORAGE_DRIVER")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "OUTBOX_POLL_INTERVAL")

	t.Setenv("OUTBOX_POLL_INTERVAL", "")
	t.Setenv("S3_USE_SSL", "maybe")
	_, err = Load()
	assert.ErrorContains(t, err, "S3_USE_SSL")
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HOSTDESK_TEST_A=from-file\nHOSTDESK_TEST_B=from-file\n"), 0o600))
	t.Setenv("HOSTDESK_TEST_A", "from-env")
	t.Setenv("HOSTDESK_TEST_B", "")
	os.Unsetenv("HOSTDESK_TEST_B")

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-env", os.Getenv("HOSTDESK_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("HOSTDESK_TEST_B"))
}
