package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/jobmatch/internal/dataset"
	"github.com/dshills/jobmatch/pkg/types"
)

type call struct {
	query, dataset string
	k              int
}

type fakeRecommender struct {
	mu      sync.Mutex
	calls   []call
	results []types.RankedResult
	err     error
	topK    int
}

func (f *fakeRecommender) RecommendN(_ context.Context, q, path string, k int) ([]types.RankedResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{q, path, k})
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeRecommender) TopK() int { return f.topK }

func (f *fakeRecommender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStatus struct{}

func (fakeStatus) Provider() string { return "local" }
func (fakeStatus) Model() string    { return "local-hashing" }
func (fakeStatus) Dimension() int   { return 64 }
func (fakeStatus) CacheLen() int    { return 12 }

func sampleResults() []types.RankedResult {
	return []types.RankedResult{
		{Rank: 1, Score: 0.912345, Listing: &types.JobListing{Row: 3, Title: "Go Developer", Company: "Acme", Location: "Remote", Description: strings.Repeat("a", 250)}},
		{Rank: 2, Score: 0.5, Listing: &types.JobListing{Row: 0, Title: "SRE", Company: "Initech", Location: "NYC", Description: "pager\nduty oncall@initech.com"}},
	}
}

func newTestServer(t *testing.T, rec *fakeRecommender) *Server {
	t.Helper()
	s, err := NewServer(Options{
		Recommender: rec,
		Embedding:   fakeStatus{},
		Dataset:     "data/job_listings.csv",
	})
	require.NoError(t, err)
	return s
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)

	var text string
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
	}

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func TestNewServerRequiresRecommender(t *testing.T) {
	_, err := NewServer(Options{})
	assert.ErrorIs(t, err, ErrNoRecommender)
}

func TestRecommendJobs(t *testing.T) {
	rec := &fakeRecommender{results: sampleResults(), topK: 5}
	s := newTestServer(t, rec)

	res, err := s.handleRecommendJobs(context.Background(), toolRequest("recommend_jobs", map[string]interface{}{
		"query": "Golang developer",
		"limit": float64(2),
	}))
	require.NoError(t, err)

	body := resultJSON(t, res)
	assert.Equal(t, "Golang developer", body["query"])
	assert.Equal(t, "data/job_listings.csv", body["dataset"])
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, false, body["cached"])

	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	first := results[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, 0.9123, first["score"])
	assert.Equal(t, "Go Developer", first["title"])
	assert.Equal(t, float64(3), first["row"])
	assert.Len(t, first["description"], 200)
	assert.Equal(t, "pager duty", results[1].(map[string]interface{})["description"])

	require.Len(t, rec.calls, 1)
	assert.Equal(t, call{"Golang developer", "data/job_listings.csv", 2}, rec.calls[0])
}

func TestRecommendJobsDefaults(t *testing.T) {
	rec := &fakeRecommender{results: sampleResults(), topK: 5}
	s := newTestServer(t, rec)

	_, err := s.handleRecommendJobs(context.Background(), toolRequest("recommend_jobs", map[string]interface{}{
		"query":   "python",
		"dataset": "/tmp/other.csv",
	}))
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, 5, rec.calls[0].k)
	assert.Equal(t, "/tmp/other.csv", rec.calls[0].dataset)
}

func TestRecommendJobsValidation(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{name: "missing query", args: map[string]interface{}{}, code: ErrorCodeEmptyQuery},
		{name: "blank query", args: map[string]interface{}{"query": "   "}, code: ErrorCodeEmptyQuery},
		{name: "only short tokens", args: map[string]interface{}{"query": "Go"}, code: ErrorCodeEmptyQuery},
		{name: "normalizes to empty", args: map[string]interface{}{"query": "a b"}, code: ErrorCodeEmptyQuery},
		{name: "wrong query type", args: map[string]interface{}{"query": 42}, code: ErrorCodeEmptyQuery},
		{name: "limit zero", args: map[string]interface{}{"query": "golang", "limit": float64(0)}, code: ErrorCodeInvalidParams},
		{name: "limit too large", args: map[string]interface{}{"query": "golang", "limit": float64(101)}, code: ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{results: sampleResults(), topK: 5}
			s := newTestServer(t, rec)

			_, err := s.handleRecommendJobs(context.Background(), toolRequest("recommend_jobs", tt.args))
			requireMCPError(t, err, tt.code)
			assert.Empty(t, rec.calls)
		})
	}
}

func TestRecommendJobsInvalidArguments(t *testing.T) {
	s := newTestServer(t, &fakeRecommender{topK: 5})
	req := mcp.CallToolRequest{}
	req.Params.Arguments = "not an object"

	_, err := s.handleRecommendJobs(context.Background(), req)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestRecommendJobsNoDataset(t *testing.T) {
	s, err := NewServer(Options{Recommender: &fakeRecommender{topK: 5}})
	require.NoError(t, err)

	_, err = s.handleRecommendJobs(context.Background(), toolRequest("recommend_jobs", map[string]interface{}{"query": "golang"}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestRecommendJobsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "not found", err: fmt.Errorf("load: %w", dataset.ErrNotFound), code: ErrorCodeDatasetNotFound},
		{name: "missing column", err: fmt.Errorf("load: %w", dataset.ErrMissingColumn), code: ErrorCodeInvalidDataset},
		{name: "other", err: errors.New("boom"), code: ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeRecommender{err: tt.err, topK: 5})
			_, err := s.handleRecommendJobs(context.Background(), toolRequest("recommend_jobs", map[string]interface{}{"query": "golang"}))
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestRecommendJobsResultCache(t *testing.T) {
	rec := &fakeRecommender{results: sampleResults(), topK: 5}
	s := newTestServer(t, rec)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	ask := func(query string) map[string]interface{} {
		res, err := s.handleRecommendJobs(context.Background(), toolRequest("recommend_jobs", map[string]interface{}{"query": query}))
		require.NoError(t, err)
		return resultJSON(t, res)
	}

	assert.Equal(t, false, ask("Golang Developer")["cached"])
	assert.Equal(t, true, ask("golang   developer")["cached"], "same normalized query")
	assert.Equal(t, 1, rec.callCount())

	now = now.Add(DefaultResultTTL + time.Second)
	assert.Equal(t, false, ask("golang developer")["cached"], "expired entry")
	assert.Equal(t, 2, rec.callCount())
}

func TestRecommendJobsSkipsCachingDegraded(t *testing.T) {
	tests := []struct {
		name    string
		results []types.RankedResult
	}{
		{name: "degraded listing", results: []types.RankedResult{
			{Rank: 1, Score: 0.4, Listing: &types.JobListing{}},
			{Rank: 2, Score: 0, Degraded: true, Listing: &types.JobListing{Row: 1}},
		}},
		{name: "all zero scores", results: []types.RankedResult{
			{Rank: 1, Score: 0, Listing: &types.JobListing{}},
			{Rank: 2, Score: 0, Listing: &types.JobListing{Row: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{results: tt.results, topK: 5}
			s := newTestServer(t, rec)
			req := toolRequest("recommend_jobs", map[string]interface{}{"query": "go developer"})

			for range 2 {
				_, err := s.handleRecommendJobs(context.Background(), req)
				require.NoError(t, err)
			}
			assert.Equal(t, 2, rec.callCount())
		})
	}
}

func TestCacheStatus(t *testing.T) {
	rec := &fakeRecommender{results: sampleResults(), topK: 5}
	s := newTestServer(t, rec)

	_, err := s.handleRecommendJobs(context.Background(), toolRequest("recommend_jobs", map[string]interface{}{"query": "golang"}))
	require.NoError(t, err)

	res, err := s.handleCacheStatus(context.Background(), toolRequest("cache_status", nil))
	require.NoError(t, err)
	body := resultJSON(t, res)

	assert.Equal(t, "data/job_listings.csv", body["default_dataset"])
	assert.Equal(t, float64(5), body["default_limit"])

	rc := body["result_cache"].(map[string]interface{})
	assert.Equal(t, float64(1), rc["entries"])
	assert.Equal(t, float64(300), rc["ttl_seconds"])

	emb := body["embedding"].(map[string]interface{})
	assert.Equal(t, "local", emb["provider"])
	assert.Equal(t, "local-hashing", emb["model"])
	assert.Equal(t, float64(64), emb["dimension"])
	assert.Equal(t, float64(12), emb["cache_entries"])
}

func TestServeStopsOnEOF(t *testing.T) {
	s := newTestServer(t, &fakeRecommender{topK: 5})
	err := s.Serve(context.Background(), strings.NewReader(""), io.Discard)
	assert.NoError(t, err)
}

func TestResultKey(t *testing.T) {
	a := resultKey("jobs.csv", 5, "golang developer")
	assert.Equal(t, a, resultKey("jobs.csv", 5, "golang developer"))
	assert.NotEqual(t, a, resultKey("jobs.csv", 6, "golang developer"))
	assert.NotEqual(t, a, resultKey("other.csv", 5, "golang developer"))
	assert.NotEqual(t, a, resultKey("jobs.csv", 5, "golang"))
}
