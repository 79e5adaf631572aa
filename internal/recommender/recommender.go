// Package recommender ranks dataset listings against a free-text query.
//
// A run embeds the query, loads the dataset, embeds every description,
// scores each listing by cosine similarity and keeps the top K. Embedding
// failures never abort a run: the affected text is scored with the zero
// vector, which has similarity 0 to everything. A dataset that cannot be
// loaded is fatal.
package recommender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/jobmatch/internal/dataset"
	"github.com/dshills/jobmatch/internal/embedder"
	"github.com/dshills/jobmatch/internal/logging"
	"github.com/dshills/jobmatch/internal/metrics"
	"github.com/dshills/jobmatch/internal/similarity"
	"github.com/dshills/jobmatch/internal/textnorm"
	"github.com/dshills/jobmatch/pkg/types"
)

// DefaultTopK is the number of results returned when no limit is set.
const DefaultTopK = 5

var (
	// ErrNoEmbedder is returned by New without an embedder.
	ErrNoEmbedder = errors.New("embedder is required")
	// ErrDataset wraps every dataset load failure.
	ErrDataset = errors.New("load dataset")
)

// Options configures a Recommender.
type Options struct {
	Embedder embedder.Embedder
	Loader   dataset.Loader // CSVLoader when nil
	TopK     int            // DefaultTopK when zero or negative
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Recommender runs recommendation passes. It holds no per-run state, so
// one value can serve many runs.
type Recommender struct {
	embedder embedder.Embedder
	loader   dataset.Loader
	topK     int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New creates a Recommender.
func New(opts Options) (*Recommender, error) {
	if opts.Embedder == nil {
		return nil, ErrNoEmbedder
	}
	if opts.Loader == nil {
		opts.Loader = dataset.CSVLoader{}
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Recommender{
		embedder: opts.Embedder,
		loader:   opts.Loader,
		topK:     opts.TopK,
		logger:   logging.OrDiscard(opts.Logger),
		metrics:  opts.Metrics,
	}, nil
}

// TopK returns the configured default result count.
func (r *Recommender) TopK() int {
	return r.topK
}

// Recommend returns the configured number of best matches for rawQuery
// among the listings in datasetPath, best first.
func (r *Recommender) Recommend(ctx context.Context, rawQuery, datasetPath string) ([]types.RankedResult, error) {
	return r.RecommendN(ctx, rawQuery, datasetPath, 0)
}

// RecommendN is Recommend with a per-call limit; k <= 0 uses the default.
// Fewer than k results are returned when the dataset is smaller.
func (r *Recommender) RecommendN(ctx context.Context, rawQuery, datasetPath string, k int) (results []types.RankedResult, err error) {
	if k <= 0 {
		k = r.topK
	}

	start := time.Now()
	defer func() { r.metrics.ObserveRecommend(time.Since(start), err) }()

	rn := &run{
		logger: r.logger.With("run_id", uuid.NewString()),
		state:  StateIdle,
	}

	query := textnorm.Normalize(rawQuery, textnorm.Matching)
	queryVec, ok := r.embed(ctx, rn.logger, query)
	if !ok {
		r.metrics.Degraded(metrics.SourceQuery)
		rn.logger.Warn("query embedding failed, scoring with zero vector")
	}
	rn.advance(StateQueryEmbedded, "query", query)

	listings, err := r.loader.Load(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataset, err)
	}
	rn.advance(StateDatasetLoaded, "listings", len(listings))

	vectors := make([]embedder.Vector, len(listings))
	degraded := make([]bool, len(listings))
	for i := range listings {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("recommendation interrupted: %w", err)
		}

		listing := &listings[i]
		listing.NormalizedDescription = textnorm.Normalize(listing.Description, textnorm.Matching)
		vec, ok := r.embed(ctx, rn.logger.With("row", listing.Row), listing.NormalizedDescription)
		if !ok {
			degraded[i] = true
			r.metrics.Degraded(metrics.SourceListing)
			rn.logger.Warn("listing embedding failed, scoring with zero vector",
				"row", listing.Row, "title", listing.Title)
		}
		vectors[i] = vec
	}
	rn.advance(StateScored)

	ranked := similarity.Rank(queryVec, vectors, k)
	results = make([]types.RankedResult, len(ranked))
	for i, s := range ranked {
		results[i] = types.RankedResult{
			Rank:     i + 1,
			Listing:  &listings[s.Index],
			Score:    s.Score,
			Degraded: degraded[s.Index],
		}
		if err := results[i].Validate(); err != nil {
			return nil, fmt.Errorf("result %d: %w", i+1, err)
		}
	}
	rn.advance(StateRanked, "results", len(results))

	failed := 0
	for _, d := range degraded {
		if d {
			failed++
		}
	}
	rn.advance(StateReported)
	rn.logger.Info("recommendation complete",
		"listings", len(listings),
		"degraded", failed,
		"results", len(results),
		"duration", time.Since(start))

	return results, nil
}

// embed returns the embedding of text, or the zero vector and false when
// the embedder fails.
func (r *Recommender) embed(ctx context.Context, logger *slog.Logger, text string) (embedder.Vector, bool) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		logger.Debug("embedding error", "error", err)
		return embedder.ZeroVector(r.embedder.Dimension()), false
	}
	return vec, true
}
