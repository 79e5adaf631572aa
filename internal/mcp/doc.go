// Package mcp implements the Model Context Protocol (MCP) server for jobmatch.
//
// The server exposes two tools to MCP clients:
//   - recommend_jobs: Rank dataset listings against a free-text query
//   - cache_status: Report the embedding backend and cache sizes
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The server is started via the serve command:
//
//	jobmatch serve
//
// It reads MCP messages from stdin and writes responses to stdout. Logs go
// to stderr.
//
// # Tool: recommend_jobs
//
//	Request:
//	{
//	  "name": "recommend_jobs",
//	  "arguments": {
//	    "query": "senior golang engineer, kubernetes, remote",
//	    "limit": 3,
//	    "dataset": "/data/job_listings.csv"
//	  }
//	}
//
//	Response:
//	{
//	  "query": "senior golang engineer, kubernetes, remote",
//	  "dataset": "/data/job_listings.csv",
//	  "limit": 3,
//	  "count": 3,
//	  "cached": false,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "score": 0.8731,
//	      "degraded": false,
//	      "row": 17,
//	      "title": "Platform Engineer",
//	      "company": "Acme",
//	      "location": "Remote",
//	      "description": "first 200 characters of the listing"
//	    }
//	  ]
//	}
//
// limit defaults to the configured MAX_RECOMMENDATIONS and must be within
// 1-100; dataset defaults to the configured DATASET.
//
// Responses are cached in memory for five minutes, keyed by dataset, limit
// and normalized query. Rankings that contain zero-vector fallbacks are not
// cached.
//
// # Tool: cache_status
//
//	Response:
//	{
//	  "default_dataset": "data/job_listings.csv",
//	  "default_limit": 5,
//	  "embedding": {
//	    "provider": "openai",
//	    "model": "text-embedding-3-small",
//	    "dimension": 1536,
//	    "cache_entries": 412
//	  },
//	  "result_cache": {"entries": 3, "ttl_seconds": 300}
//	}
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "jobmatch": {
//	      "command": "/usr/local/bin/jobmatch",
//	      "args": ["serve"],
//	      "env": {
//	        "OPENAI_API_KEY": "your-api-key",
//	        "DATASET": "/data/job_listings.csv"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing query, limit out of range)
//   - -32603: Internal error
//   - -32001: Dataset not found
//   - -32002: Dataset is missing required columns
//   - -32004: Empty query
package mcp
