// Package embedder turns text into embedding vectors through a remote
// provider, with a write-through JSON cache and a retry policy.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  embedder.ProviderOpenAI,
//	    Model:     embedder.DefaultOpenAIModel,
//	    Dimension: embedder.OpenAIDimension,
//	    CacheFile: "cache.json",
//	    Retry:     embedder.DefaultRetryPolicy(),
//	}, logger, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vec, err := emb.Embed(ctx, "Senior Go engineer, remote")
//
// # Caching
//
// The cache key is the input normalized with textnorm.CacheKey. Two inputs
// that normalize to the same text share one entry. The cache is loaded once
// from its Backing and flushed in full after every new entry, so a killed
// process loses at most the request in flight:
//
//	cache := embedder.NewCache(embedder.FileBacking{Path: "cache.json"}, logger)
//	cache.Put("senior go engineer", vec) // flushes
//
// A missing or malformed cache file starts an empty cache without an error.
// Tests inject a MemoryBacking instead of a file.
//
// # Error Handling
//
// Transport errors, HTTP 429 and 5xx responses are retried with randomized
// exponential backoff (DefaultRetryPolicy: 6 attempts, waits between 1s and
// 20s). Other HTTP errors and dimension mismatches are wrapped with
// NonRetryable and fail at once. Every failure satisfies
// errors.Is(err, ErrProviderFailed):
//
//	vec, err := emb.Embed(ctx, text)
//	if err != nil {
//	    vec = embedder.ZeroVector(emb.Dimension()) // degrade, keep going
//	}
//
// # Providers
//
// OpenAI (default): any OpenAI-compatible /embeddings endpoint, called
// through github.com/sashabaranov/go-openai; 1536 dimensions for
// text-embedding-3-small. StatusCode recovers the HTTP status from SDK
// errors.
//
// Local: offline hashing-trick vectors for demos and tests, no network.
package embedder
