package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/jobmatch/internal/metrics"
	"github.com/dshills/jobmatch/internal/textnorm"
)

// Common errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
)

// Vector is an embedding.
type Vector []float64

// ZeroVector returns the all-zero sentinel used when no embedding could be
// obtained. It has no direction; similarity against it is defined as 0.
func ZeroVector(dimension int) Vector {
	if dimension < 0 {
		dimension = 0
	}
	return make(Vector, dimension)
}

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// IsZero reports whether every component is zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Client is a remote (or local) embedding endpoint. Implementations embed
// the text exactly as given.
type Client interface {
	// Embed returns the embedding of text under model.
	Embed(ctx context.Context, text, model string) (Vector, error)

	// Provider returns the provider name
	Provider() string

	// Close releases any resources held by the client
	Close() error
}

// Embedder turns raw text into an embedding of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, raw string) (Vector, error)
	Dimension() int
	Model() string
}

// Options configures a CachingEmbedder.
type Options struct {
	Client    Client
	Cache     *Cache
	Model     string
	Dimension int
	Retry     RetryPolicy
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// CachingEmbedder normalizes text into a cache key, serves cached vectors
// and fetches misses from its Client under a retry policy.
type CachingEmbedder struct {
	client    Client
	cache     *Cache
	model     string
	dimension int
	retry     RetryPolicy
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewCachingEmbedder validates opts and fills defaults: OpenAI model and
// dimension, DefaultRetryPolicy when MaxAttempts is zero.
func NewCachingEmbedder(opts Options) (*CachingEmbedder, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("%w: cache is required", ErrInvalidInput)
	}
	if opts.Dimension < 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidInput, opts.Dimension)
	}
	if opts.Dimension == 0 {
		opts.Dimension = OpenAIDimension
	}
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &CachingEmbedder{
		client:    opts.Client,
		cache:     opts.Cache,
		model:     opts.Model,
		dimension: opts.Dimension,
		retry:     opts.Retry,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// Embed returns the embedding for raw. The cache key is raw normalized with
// textnorm.CacheKey, so texts that normalize identically share one entry and
// one remote call.
func (e *CachingEmbedder) Embed(ctx context.Context, raw string) (Vector, error) {
	key := textnorm.Normalize(raw, textnorm.CacheKey)
	if key == "" {
		return nil, ErrEmptyText
	}

	if v, ok := e.cache.Get(key); ok {
		if len(v) == e.dimension {
			e.metrics.CacheLookup(true)
			return v, nil
		}
		e.logger.Debug("cached embedding has wrong dimension, refetching",
			"got", len(v), "want", e.dimension)
	}
	e.metrics.CacheLookup(false)

	v, err := retryWithBackoff(ctx, e.retry, func() (Vector, error) {
		v, err := e.client.Embed(ctx, key, e.model)
		if err != nil {
			return nil, err
		}
		if len(v) != e.dimension {
			return nil, NonRetryable(fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), e.dimension))
		}
		return v, nil
	}, func(attempt int, err error, wait time.Duration) {
		e.metrics.Retry()
		e.logger.Debug("embedding request failed, retrying",
			"provider", e.client.Provider(), "attempt", attempt, "wait", wait, "error", err)
	})
	e.metrics.ProviderCall(err)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Put(key, v); err != nil {
		e.logger.Warn("failed to persist embedding cache", "error", err)
	}
	return v.Clone(), nil
}

func (e *CachingEmbedder) Dimension() int {
	return e.dimension
}

func (e *CachingEmbedder) Model() string {
	return e.model
}

// Provider returns the name of the underlying client.
func (e *CachingEmbedder) Provider() string {
	return e.client.Provider()
}

// CacheLen returns the number of cached embeddings.
func (e *CachingEmbedder) CacheLen() int {
	return e.cache.Len()
}

// Close releases the client.
func (e *CachingEmbedder) Close() error {
	return e.client.Close()
}
