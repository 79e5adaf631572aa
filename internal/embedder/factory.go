package embedder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/jobmatch/internal/metrics"
)

// Config holds embedder configuration
type Config struct {
	Provider  string // openai (default) or local
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
	CacheFile string
	Retry     RetryPolicy
}

// New builds a CachingEmbedder backed by the JSON cache file named in cfg.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) (*CachingEmbedder, error) {
	if cfg.CacheFile == "" {
		return nil, fmt.Errorf("%w: cache file is required", ErrInvalidInput)
	}

	var client Client
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		c, err := NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		client = c
	case ProviderLocal:
		c, err := NewLocalClient(cfg.Dimension)
		if err != nil {
			return nil, err
		}
		client = c
		if cfg.Model == "" {
			cfg.Model = DefaultLocalModel
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}

	cache := NewCache(FileBacking{Path: cfg.CacheFile}, logger)

	return NewCachingEmbedder(Options{
		Client:    client,
		Cache:     cache,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
		Retry:     cfg.Retry,
		Logger:    logger,
		Metrics:   m,
	})
}
