package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 10, cfg.Pipeline.WordCountCutoff)
	assert.Equal(t, []string{MatrixSubmissions, MatrixComments, MatrixUsers}, cfg.Pipeline.Matrices)
	assert.Equal(t, 5, cfg.Scraper.Retry.MaxAttempts)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
storage:
  driver: postgres
scraper:
  forum: golang
  retry:
    maxAttempts: 2
    delay: 250ms
pipeline:
  wordCountCutoff: 3
  matrices: [comments]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("FC_PIPELINE_CUTOFF", "7")
	t.Setenv("FC_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "golang", cfg.Scraper.Forum)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.Retry.Delay)
	assert.Equal(t, 7, cfg.Pipeline.WordCountCutoff)
	assert.Equal(t, []string{MatrixComments}, cfg.Pipeline.Matrices)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Contains(t, cfg.Storage.Postgres.DSN(cfg.Storage.Postgres.RawDatabase), "dbname=forum_raw")
}

func TestDevelopmentConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "IAmA", cfg.Scraper.Forum)
	assert.Equal(t, 60, cfg.Scraper.RequestsPerMinute)
	assert.Equal(t, 5*time.Minute, cfg.Storage.Postgres.ConnMaxLifetime)
	assert.Equal(t, 15*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, " ", cfg.Pipeline.UserTextSeparator)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"negative limit", func(c *Config) { c.Scraper.CommentLimit = -1 }},
		{"negative rate", func(c *Config) { c.Scraper.RequestsPerMinute = -5 }},
		{"zero attempts", func(c *Config) { c.Scraper.Retry.MaxAttempts = 0 }},
		{"unknown matrix", func(c *Config) { c.Pipeline.Matrices = []string{"titles"} }},
		{"no artifact", func(c *Config) { c.Pipeline.ArtifactPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
		})
	}
}
