// Package config loads the candidex process configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/candidex/ai"
	"github.com/poiesic/candidex/tracing"
)

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// AI providers.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config holds the candidex configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Search    SearchConfig    `yaml:"search"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Reindex   ReindexConfig   `yaml:"reindex"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   tracing.Config  `yaml:"tracing"`
}

// StorageConfig selects the backend holding both stores.
type StorageConfig struct {
	Driver        string `yaml:"driver" validate:"oneof=badger postgres"`
	Path          string `yaml:"path" validate:"required_if=Driver badger"`
	DSN           string `yaml:"dsn" validate:"required_if=Driver postgres"`
	MaxWorkingSet int    `yaml:"max_working_set" validate:"gte=0"`
	Compression   bool   `yaml:"compression"`
	SyncWrites    bool   `yaml:"sync_writes"`
}

// AIConfig holds embedding and extraction settings.
type AIConfig struct {
	Provider           string        `yaml:"provider" validate:"oneof=openai mock"`
	EmbeddingHost      string        `yaml:"embedding_host"`
	ExtractorHost      string        `yaml:"extractor_host"`
	EmbeddingModel     string        `yaml:"embedding_model"`
	ExtractorModel     string        `yaml:"extractor_model"`
	APIToken           string        `yaml:"api_token"`
	ExtractionAttempts int           `yaml:"extraction_attempts" validate:"gte=0"`
	EmbeddingCacheTTL  time.Duration `yaml:"embedding_cache_ttl" validate:"gte=0"`
}

// SearchConfig holds hybrid search settings.
type SearchConfig struct {
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	ResultCacheTTL time.Duration `yaml:"result_cache_ttl" validate:"gte=0"`
}

// IngestionConfig holds write-path settings.
type IngestionConfig struct {
	PoolSize int `yaml:"pool_size" validate:"gte=0"`
}

// ReindexConfig holds repair pass settings.
type ReindexConfig struct {
	BatchSize      int           `yaml:"batch_size" validate:"gte=0"`
	Workers        int           `yaml:"workers" validate:"gte=0"`
	ReportInterval int           `yaml:"report_interval" validate:"gte=0"`
	MaxRetries     int           `yaml:"max_retries" validate:"gte=0"`
	RetryDelay     time.Duration `yaml:"retry_delay" validate:"gte=0"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. ${VAR} and ${VAR:-default}
// references are expanded from the environment before parsing.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverBadger
	}
	if c.Storage.Driver == DriverBadger && c.Storage.Path == "" {
		c.Storage.Path = "candidex.db"
	}
	if c.Storage.MaxWorkingSet == 0 {
		c.Storage.MaxWorkingSet = 10000
	}

	aiDefaults := ai.DefaultConfig()
	if c.AI.Provider == "" {
		c.AI.Provider = ProviderOpenAI
	}
	if c.AI.EmbeddingHost == "" {
		c.AI.EmbeddingHost = aiDefaults.EmbeddingHost
	}
	if c.AI.ExtractorHost == "" {
		c.AI.ExtractorHost = c.AI.EmbeddingHost
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = aiDefaults.EmbeddingModel
	}
	if c.AI.ExtractorModel == "" {
		c.AI.ExtractorModel = aiDefaults.ExtractorModel
	}
	if c.AI.APIToken == "" {
		c.AI.APIToken = aiDefaults.APIToken
	}
	if c.AI.ExtractionAttempts == 0 {
		c.AI.ExtractionAttempts = aiDefaults.ExtractionAttempts
	}
	if c.AI.EmbeddingCacheTTL == 0 {
		c.AI.EmbeddingCacheTTL = time.Hour
	}

	if c.Search.Timeout == 0 {
		c.Search.Timeout = 5 * time.Second
	}
	if c.Search.ResultCacheTTL == 0 {
		c.Search.ResultCacheTTL = time.Minute
	}

	if c.Ingestion.PoolSize == 0 {
		c.Ingestion.PoolSize = 4
	}

	if c.Reindex.BatchSize == 0 {
		c.Reindex.BatchSize = 100
	}
	if c.Reindex.Workers == 0 {
		c.Reindex.Workers = 4
	}
	if c.Reindex.ReportInterval == 0 {
		c.Reindex.ReportInterval = 100
	}
	if c.Reindex.MaxRetries == 0 {
		c.Reindex.MaxRetries = 3
	}
	if c.Reindex.RetryDelay == 0 {
		c.Reindex.RetryDelay = time.Second
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = tracing.DefaultServiceName
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.AI.Provider == ProviderOpenAI {
		if err := c.AIConfig().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AIConfig converts the ai section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithExtractorHost(c.AI.ExtractorHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithExtractorModel(c.AI.ExtractorModel),
		ai.WithAPIToken(c.AI.APIToken),
		ai.WithExtractionAttempts(c.AI.ExtractionAttempts),
	)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
