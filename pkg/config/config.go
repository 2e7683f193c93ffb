// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Storage, Scraper, Pipeline, Redis, Kafka, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StorageConfig selects the relational backend for the raw and processed
// databases.
type StorageConfig struct {
	Driver        string         `yaml:"driver"`
	RawPath       string         `yaml:"rawPath"`
	ProcessedPath string         `yaml:"processedPath"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection parameters. The raw and processed
// tables live in separate databases on the same server.
type PostgresConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	RawDatabase       string        `yaml:"rawDatabase"`
	ProcessedDatabase string        `yaml:"processedDatabase"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password"`
	SSLMode           string        `yaml:"sslMode"`
	MaxOpenConns      int           `yaml:"maxOpenConns"`
	MaxIdleConns      int           `yaml:"maxIdleConns"`
	ConnMaxLifetime   time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name for the given database.
func (p PostgresConfig) DSN(database string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, database, p.SSLMode,
	)
}

// ScraperConfig controls what is fetched from the forum and how failures are
// retried.
type ScraperConfig struct {
	BaseURL         string        `yaml:"baseUrl"`
	UserAgent       string        `yaml:"userAgent"`
	Forum           string        `yaml:"forum"`
	SubmissionLimit int           `yaml:"submissionLimit"`
	CommentLimit    int           `yaml:"commentLimit"`
	MaxCommentDepth int           `yaml:"maxCommentDepth"`
	Concurrency     int           `yaml:"concurrency"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// RequestsPerMinute caps API requests across all workers. Zero disables
	// the limit.
	RequestsPerMinute int         `yaml:"requestsPerMinute"`
	Retry             RetryConfig `yaml:"retry"`
}

// RetryConfig is the bounded fixed-delay retry policy for fetches.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Delay       time.Duration `yaml:"delay"`
}

// Matrix names accepted in PipelineConfig.Matrices.
const (
	MatrixSubmissions = "submissions"
	MatrixComments    = "comments"
	MatrixUsers       = "users"
)

// PipelineConfig controls vocabulary construction and matrix output.
type PipelineConfig struct {
	WordCountCutoff   int      `yaml:"wordCountCutoff"`
	Stopwords         string   `yaml:"stopwords"`
	ExtraStopwords    []string `yaml:"extraStopwords"`
	StopwordsFile     string   `yaml:"stopwordsFile"`
	Matrices          []string `yaml:"matrices"`
	ArtifactPath      string   `yaml:"artifactPath"`
	UserTextSeparator string   `yaml:"userTextSeparator"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ScrapeComplete  string `yaml:"scrapeComplete"`
	CorpusProcessed string `yaml:"corpusProcessed"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:        DriverSQLite,
			RawPath:       "data/raw_subreddit.db",
			ProcessedPath: "data/proc_subreddit.db",
			Postgres: PostgresConfig{
				Host:              "localhost",
				Port:              5432,
				RawDatabase:       "forum_raw",
				ProcessedDatabase: "forum_processed",
				User:              "forumcorpus",
				Password:          "localdev",
				SSLMode:           "disable",
				MaxOpenConns:      10,
				MaxIdleConns:      2,
				ConnMaxLifetime:   5 * time.Minute,
			},
		},
		Scraper: ScraperConfig{
			BaseURL:           "https://www.reddit.com",
			UserAgent:         "forum-corpus/0.1",
			Forum:             "IAmA",
			SubmissionLimit:   100,
			CommentLimit:      100,
			MaxCommentDepth:   0,
			Concurrency:       1,
			RequestTimeout:    30 * time.Second,
			RequestsPerMinute: 60,
			Retry: RetryConfig{
				MaxAttempts: 5,
				Delay:       10 * time.Second,
			},
		},
		Pipeline: PipelineConfig{
			WordCountCutoff:   10,
			Stopwords:         "english",
			Matrices:          []string{MatrixSubmissions, MatrixComments, MatrixUsers},
			ArtifactPath:      "data/dtm_subreddit.spdm",
			UserTextSeparator: " ",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 15 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "forum-corpus-processor",
			Topics: KafkaTopics{
				ScrapeComplete:  "forum.scrape.complete",
				CorpusProcessed: "forum.corpus.processed",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "storage.driver %q (want %s or %s)", c.Storage.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Scraper.SubmissionLimit < 0 || c.Scraper.CommentLimit < 0 || c.Scraper.MaxCommentDepth < 0 || c.Scraper.RequestsPerMinute < 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "scraper limits must not be negative")
	}
	if c.Scraper.Retry.MaxAttempts < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "scraper.retry.maxAttempts %d (want >= 1)", c.Scraper.Retry.MaxAttempts)
	}
	if c.Pipeline.ArtifactPath == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, "pipeline.artifactPath is required")
	}
	for _, m := range c.Pipeline.Matrices {
		switch m {
		case MatrixSubmissions, MatrixComments, MatrixUsers:
		default:
			return apperrors.Newf(apperrors.ErrInvalidConfig, "pipeline.matrices: unknown matrix %q", m)
		}
	}
	return nil
}

// applyEnvOverrides reads FC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FC_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("FC_STORAGE_RAW_PATH"); v != "" {
		cfg.Storage.RawPath = v
	}
	if v := os.Getenv("FC_STORAGE_PROCESSED_PATH"); v != "" {
		cfg.Storage.ProcessedPath = v
	}
	if v := os.Getenv("FC_POSTGRES_HOST"); v != "" {
		cfg.Storage.Postgres.Host = v
	}
	if v := os.Getenv("FC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.Port = port
		}
	}
	if v := os.Getenv("FC_POSTGRES_USER"); v != "" {
		cfg.Storage.Postgres.User = v
	}
	if v := os.Getenv("FC_POSTGRES_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("FC_POSTGRES_SSLMODE"); v != "" {
		cfg.Storage.Postgres.SSLMode = v
	}
	if v := os.Getenv("FC_SCRAPER_FORUM"); v != "" {
		cfg.Scraper.Forum = v
	}
	if v := os.Getenv("FC_SCRAPER_USER_AGENT"); v != "" {
		cfg.Scraper.UserAgent = v
	}
	if v := os.Getenv("FC_PIPELINE_CUTOFF"); v != "" {
		if cutoff, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.WordCountCutoff = cutoff
		}
	}
	if v := os.Getenv("FC_PIPELINE_ARTIFACT_PATH"); v != "" {
		cfg.Pipeline.ArtifactPath = v
	}
	if v := os.Getenv("FC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("FC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("FC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
