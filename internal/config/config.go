// Package config resolves jobmatch settings from defaults, an optional YAML
// file, a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/jobmatch/internal/embedder"
)

// ErrInvalid is returned for values that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Environment keys
const (
	EnvCacheFile          = "CACHE_FILE"
	EnvModelName          = "MODEL_NAME"
	EnvEmbeddingSize      = "DEFAULT_EMBEDDING_SIZE"
	EnvMaxRecommendations = "MAX_RECOMMENDATIONS"
	EnvDataset            = "DATASET"
	EnvProvider           = "EMBEDDING_PROVIDER"
	EnvAPIKey             = embedder.EnvOpenAIAPIKey
	EnvBaseURL            = "OPENAI_BASE_URL"
	EnvTimeoutSecs        = "EMBEDDING_TIMEOUT_SECS"
	EnvRetryMaxAttempts   = "RETRY_MAX_ATTEMPTS"
	EnvRetryInitialDelay  = "RETRY_INITIAL_DELAY"
	EnvRetryMaxDelay      = "RETRY_MAX_DELAY"
	EnvLogLevel           = "LOG_LEVEL"
	EnvMetricsAddr        = "METRICS_ADDR"
)

// Defaults
const (
	DefaultCacheFile          = "cache.json"
	DefaultDataset            = "data/job_listings.csv"
	DefaultMaxRecommendations = 5
	DefaultLogLevel           = "info"
	DefaultEnvFile            = ".env"
)

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetryConfig configures backoff for remote embedding calls.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// Config is the resolved application configuration.
type Config struct {
	CacheFile          string          `yaml:"cache_file"`
	Dataset            string          `yaml:"dataset"`
	MaxRecommendations int             `yaml:"max_recommendations"`
	LogLevel           string          `yaml:"log_level"`
	MetricsAddr        string          `yaml:"metrics_addr"`
	Embedding          EmbeddingConfig `yaml:"embedding"`
	Retry              RetryConfig     `yaml:"retry"`
}

// Default returns the built-in configuration. The model is left empty and
// filled in by Load once the provider is known.
func Default() *Config {
	return &Config{
		CacheFile:          DefaultCacheFile,
		Dataset:            DefaultDataset,
		MaxRecommendations: DefaultMaxRecommendations,
		LogLevel:           DefaultLogLevel,
		Embedding: EmbeddingConfig{
			Provider:    embedder.ProviderOpenAI,
			Dimension:   embedder.OpenAIDimension,
			BaseURL:     embedder.DefaultOpenAIBaseURL,
			TimeoutSecs: int(embedder.DefaultTimeout / time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts:  embedder.DefaultMaxAttempts,
			InitialDelay: embedder.DefaultInitialDelay,
			MaxDelay:     embedder.DefaultMaxDelay,
		},
	}
}

// Load resolves the configuration. path names an optional YAML file; an
// empty path or a missing file leaves the defaults in place. envFiles are
// read as dotenv files (DefaultEnvFile when none are given); missing ones
// are ignored. Values already present in the process environment win over
// dotenv values. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
			}
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(lookupFunc(dotenv)); err != nil {
		return nil, err
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultModel(cfg.Embedding.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultModel depends on the provider, so it is resolved after all sources.
func defaultModel(provider string) string {
	if strings.EqualFold(provider, embedder.ProviderLocal) {
		return embedder.DefaultLocalModel
	}
	return embedder.DefaultOpenAIModel
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	merged := make(map[string]string)
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		values, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalid, f, err)
		}
		for k, v := range values {
			if _, seen := merged[k]; !seen {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

// lookupFunc prefers the process environment over dotenv values.
func lookupFunc(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	setString(lookup, EnvCacheFile, &c.CacheFile)
	setString(lookup, EnvDataset, &c.Dataset)
	setString(lookup, EnvLogLevel, &c.LogLevel)
	setString(lookup, EnvMetricsAddr, &c.MetricsAddr)
	setString(lookup, EnvProvider, &c.Embedding.Provider)
	setString(lookup, EnvModelName, &c.Embedding.Model)
	setString(lookup, EnvAPIKey, &c.Embedding.APIKey)
	setString(lookup, EnvBaseURL, &c.Embedding.BaseURL)

	ints := []struct {
		key string
		dst *int
	}{
		{EnvEmbeddingSize, &c.Embedding.Dimension},
		{EnvMaxRecommendations, &c.MaxRecommendations},
		{EnvTimeoutSecs, &c.Embedding.TimeoutSecs},
		{EnvRetryMaxAttempts, &c.Retry.MaxAttempts},
	}
	for _, it := range ints {
		if err := setInt(lookup, it.key, it.dst); err != nil {
			return err
		}
	}

	if err := setDuration(lookup, EnvRetryInitialDelay, &c.Retry.InitialDelay); err != nil {
		return err
	}
	return setDuration(lookup, EnvRetryMaxDelay, &c.Retry.MaxDelay)
}

func setString(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(lookup func(string) (string, bool), key string, dst *int) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
	}
	*dst = n
	return nil
}

// setDuration accepts Go durations ("1500ms") and bare seconds ("2").
func setDuration(lookup func(string) (string, bool), key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalid, key, v)
	}
	*dst = d
	return nil
}

// Validate reports the first unusable value.
func (c *Config) Validate() error {
	switch {
	case c.CacheFile == "":
		return fmt.Errorf("%w: %s is empty", ErrInvalid, EnvCacheFile)
	case c.Embedding.Dimension <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, EnvEmbeddingSize)
	case c.MaxRecommendations <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, EnvMaxRecommendations)
	case c.Embedding.TimeoutSecs <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, EnvTimeoutSecs)
	case c.Retry.MaxAttempts <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, EnvRetryMaxAttempts)
	case c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0:
		return fmt.Errorf("%w: retry delays must not be negative", ErrInvalid)
	case c.Retry.MaxDelay < c.Retry.InitialDelay:
		return fmt.Errorf("%w: %s is below %s", ErrInvalid, EnvRetryMaxDelay, EnvRetryInitialDelay)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case embedder.ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("%w: %s is required for the %s provider", ErrInvalid, EnvAPIKey, embedder.ProviderOpenAI)
		}
	case embedder.ProviderLocal:
	default:
		return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvProvider, c.Embedding.Provider)
	}
	return nil
}

// EmbedderConfig converts the settings for embedder.New.
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  strings.ToLower(c.Embedding.Provider),
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		Model:     c.Embedding.Model,
		Dimension: c.Embedding.Dimension,
		Timeout:   time.Duration(c.Embedding.TimeoutSecs) * time.Second,
		CacheFile: c.CacheFile,
		Retry: embedder.RetryPolicy{
			MaxAttempts:  c.Retry.MaxAttempts,
			InitialDelay: c.Retry.InitialDelay,
			MaxDelay:     c.Retry.MaxDelay,
			Multiplier:   embedder.BackoffMultiplier,
		},
	}
}
