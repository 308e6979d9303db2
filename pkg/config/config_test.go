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
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory://", cfg.Store.URL)
	assert.Equal(t, "possessive", cfg.Search.Stemmer)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: 9000
store:
  url: sqlite://` + filepath.Join(dir, "docs.db") + `
redis:
  enabled: true
  cacheTTL: 2m
search:
  stemmer: snowball
  patternCacheSize: 16
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("TS_SERVER_PORT", "9100")
	t.Setenv("TS_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "snowball", cfg.Search.Stemmer)
	assert.Equal(t, 16, cfg.Search.PatternCacheSize)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	// untouched sections keep defaults
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoadRejectsUnknownStemmer(t *testing.T) {
	t.Setenv("TS_SEARCH_STEMMER", "porter")
	_, err := Load("")
	assert.ErrorContains(t, err, "search.stemmer")
}

func TestValidateRateLimit(t *testing.T) {
	cfg := Default()
	cfg.Server.RateLimit = RateLimitConfig{Requests: 10}
	assert.ErrorContains(t, cfg.Validate(), "server.rateLimit.window")

	cfg.Server.RateLimit.Window = time.Second
	assert.NoError(t, cfg.Validate())
}

func TestDevelopmentConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "textsearch-analytics", cfg.Kafka.AnalyticsGroup)
	assert.Equal(t, 600, cfg.Server.RateLimit.Requests)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.Analytics.SnapshotInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := Default().Postgres.DSN()
	assert.Contains(t, dsn, "dbname=textsearch")
	assert.Contains(t, dsn, "sslmode=disable")
}
