package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/jobmatch/internal/logging"
	"github.com/dshills/jobmatch/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "jobmatch"
	// DefaultResultEntries bounds the result cache
	DefaultResultEntries = 256
	// DefaultResultTTL is how long a cached ranking stays valid
	DefaultResultTTL = 5 * time.Minute
)

// ErrNoRecommender is returned by NewServer without a recommender.
var ErrNoRecommender = errors.New("recommender is required")

// Recommender produces rankings for the recommend_jobs tool.
type Recommender interface {
	RecommendN(ctx context.Context, rawQuery, datasetPath string, k int) ([]types.RankedResult, error)
	TopK() int
}

// EmbeddingStatus describes the embedding backend for cache_status.
type EmbeddingStatus interface {
	Provider() string
	Model() string
	Dimension() int
	CacheLen() int
}

// Options configures a Server.
type Options struct {
	Version       string
	Recommender   Recommender
	Embedding     EmbeddingStatus // optional
	Dataset       string          // used when a call names no dataset
	ResultEntries int
	ResultTTL     time.Duration
	Logger        *slog.Logger
}

// cacheEntry is a rendered recommend_jobs response with its expiry.
type cacheEntry struct {
	response  map[string]interface{}
	expiresAt time.Time
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	rec       Recommender
	embedding EmbeddingStatus
	dataset   string
	logger    *slog.Logger

	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
	now      func() time.Time
}

// NewServer creates a new MCP server instance and registers its tools.
func NewServer(opts Options) (*Server, error) {
	if opts.Recommender == nil {
		return nil, ErrNoRecommender
	}
	if opts.ResultEntries <= 0 {
		opts.ResultEntries = DefaultResultEntries
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.ResultEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, opts.Version),
		rec:       opts.Recommender,
		embedding: opts.Embedding,
		dataset:   opts.Dataset,
		logger:    logging.OrDiscard(opts.Logger),
		cache:     cache,
		cacheTTL:  opts.ResultTTL,
		now:       time.Now,
	}
	s.registerTools()
	return s, nil
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
// Protocol errors are logged through the server logger.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server listening on stdio")
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(recommendJobsTool(), s.handleRecommendJobs)
	s.mcp.AddTool(cacheStatusTool(), s.handleCacheStatus)
}
