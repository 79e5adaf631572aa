package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Argument limits for recommend_jobs
const (
	MinLimit = 1
	MaxLimit = 100
)

// recommendJobsTool returns the tool definition for recommend_jobs
func recommendJobsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "recommend_jobs",
		Description: "Rank job listings by semantic similarity to a free-text description of skills or a desired role",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Job description, skills, or keywords to match",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of recommendations to return (1-100)",
					"minimum":     MinLimit,
					"maximum":     MaxLimit,
				},
				"dataset": map[string]interface{}{
					"type":        "string",
					"description": "Path to a CSV file with title, company, location and description columns. Defaults to the configured dataset",
				},
			},
			Required: []string{"query"},
		},
	}
}

// cacheStatusTool returns the tool definition for cache_status
func cacheStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cache_status",
		Description: "Report the embedding backend and the size of the embedding and result caches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
