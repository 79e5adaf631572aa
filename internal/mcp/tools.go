package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/jobmatch/internal/dataset"
	"github.com/dshills/jobmatch/internal/report"
	"github.com/dshills/jobmatch/internal/textnorm"
	"github.com/dshills/jobmatch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeDatasetNotFound = -32001 // Dataset file does not exist
	ErrorCodeInvalidDataset  = -32002 // Dataset lacks required columns
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// handleRecommendJobs handles the recommend_jobs tool invocation
func (s *Server) handleRecommendJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	normalized := textnorm.Normalize(query, textnorm.Matching)
	if normalized == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty after normalization",
		})
	}

	limit := getIntDefault(args, "limit", s.rec.TopK())
	if limit < MinLimit || limit > MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	path := getStringDefault(args, "dataset", s.dataset)
	if path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "dataset parameter is required when no default is configured", map[string]interface{}{
			"param":  "dataset",
			"reason": "missing or empty",
		})
	}

	key := resultKey(path, limit, normalized)
	if cached, ok := s.checkCache(key); ok {
		cached["cached"] = true
		return mcp.NewToolResultText(formatJSON(cached)), nil
	}

	results, err := s.rec.RecommendN(ctx, query, path, limit)
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		return nil, newMCPError(ErrorCodeDatasetNotFound, "dataset not found", map[string]interface{}{
			"param":   "dataset",
			"dataset": path,
		})
	case errors.Is(err, dataset.ErrMissingColumn):
		return nil, newMCPError(ErrorCodeInvalidDataset, "dataset is missing required columns", map[string]interface{}{
			"dataset": path,
			"error":   err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "recommendation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"query":   query,
		"dataset": path,
		"limit":   limit,
		"count":   len(results),
		"results": formatResults(results),
	}
	if cacheable(results) {
		s.storeInCache(key, response)
	}
	response["cached"] = false

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCacheStatus handles the cache_status tool invocation
func (s *Server) handleCacheStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.cacheMu.RLock()
	resultEntries := s.cache.Len()
	s.cacheMu.RUnlock()

	response := map[string]interface{}{
		"default_dataset": s.dataset,
		"default_limit":   s.rec.TopK(),
		"result_cache": map[string]interface{}{
			"entries":     resultEntries,
			"ttl_seconds": int(s.cacheTTL.Seconds()),
		},
	}
	if s.embedding != nil {
		response["embedding"] = map[string]interface{}{
			"provider":      s.embedding.Provider(),
			"model":         s.embedding.Model(),
			"dimension":     s.embedding.Dimension(),
			"cache_entries": s.embedding.CacheLen(),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func formatResults(results []types.RankedResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"rank":     r.Rank,
			"score":    roundScore(r.Score),
			"degraded": r.Degraded,
		}
		if l := r.Listing; l != nil {
			entry["row"] = l.Row
			entry["title"] = l.Title
			entry["company"] = l.Company
			entry["location"] = l.Location
			entry["description"] = report.Preview(textnorm.Normalize(l.Description, textnorm.CacheKey), report.PreviewLength)
		}
		out = append(out, entry)
	}
	return out
}

func roundScore(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 4, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// cacheable rejects rankings built on zero-vector fallbacks: a failed listing
// embedding, or a failed query embedding, which scores every listing 0.
func cacheable(results []types.RankedResult) bool {
	allZero := len(results) > 0
	for _, r := range results {
		if r.Degraded {
			return false
		}
		if r.Score != 0 {
			allZero = false
		}
	}
	return !allZero
}

// checkCache returns a copy of an unexpired cached response
func (s *Server) checkCache(key [32]byte) (map[string]interface{}, bool) {
	now := s.now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil, false
	}
	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()

	return response, true
}

// storeInCache saves a response until the TTL elapses
func (s *Server) storeInCache(key [32]byte, response map[string]interface{}) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: s.now().Add(s.cacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// copyResponse copies the top level; nested values are never mutated.
func copyResponse(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// resultKey hashes the inputs that determine a ranking
func resultKey(path string, limit int, normalizedQuery string) [32]byte {
	var data strings.Builder
	data.WriteString("dataset:")
	data.WriteString(path)
	data.WriteString("|limit:")
	data.WriteString(strconv.Itoa(limit))
	data.WriteString("|query:")
	data.WriteString(normalizedQuery)
	return sha256.Sum256([]byte(data.String()))
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
