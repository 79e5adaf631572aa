package embedder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hashing"

	// Dimensions
	OpenAIDimension = 1536

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultTimeout       = 30 * time.Second

	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// OpenAIClient calls an OpenAI-compatible /embeddings endpoint through the
// go-openai SDK.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	client     *openai.Client
}

// NewOpenAIClient creates a client. An empty apiKey falls back to
// OPENAI_API_KEY; an empty baseURL to the public OpenAI API.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/")
	config.HTTPClient = httpClient

	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    config.BaseURL,
		httpClient: httpClient,
		client:     openai.NewClientWithConfig(config),
	}, nil
}

// Embed requests a single embedding. Transport failures, undecodable bodies,
// 429 and 5xx are returned as retryable errors; every other error status is
// non-retryable.
func (o *OpenAIClient) Embed(ctx context.Context, text, model string) (Vector, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, classifyAPIError(fmt.Errorf("embedding API call failed: %w", err))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	data := resp.Data[0].Embedding
	vector := make(Vector, len(data))
	for i, f := range data {
		vector[i] = float64(f)
	}
	return vector, nil
}

// classifyAPIError marks errors carrying a permanent HTTP status as
// non-retryable.
func classifyAPIError(err error) error {
	if status, ok := StatusCode(err); ok && !temporaryStatus(status) {
		return NonRetryable(err)
	}
	return err
}

// StatusCode extracts the HTTP status from an SDK error.
func StatusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

// temporaryStatus reports rate limiting and server-side failures.
func temporaryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (o *OpenAIClient) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIClient) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

var localTokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// LocalClient produces offline embeddings with the hashing trick: every
// token adds +1 or -1 to a bucket chosen by its FNV hash. Texts sharing
// vocabulary end up with positive cosine similarity.
type LocalClient struct {
	dimension int
}

// NewLocalClient creates a local embedder producing vectors of the given size.
func NewLocalClient(dimension int) (*LocalClient, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidInput, dimension)
	}
	return &LocalClient{dimension: dimension}, nil
}

func (l *LocalClient) Embed(ctx context.Context, text, model string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vector := make(Vector, l.dimension)
	for _, token := range localTokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		idx := sum % uint64(l.dimension)
		if sum&(1<<63) != 0 {
			vector[idx]--
		} else {
			vector[idx]++
		}
	}
	return vector, nil
}

func (l *LocalClient) Provider() string {
	return ProviderLocal
}

func (l *LocalClient) Close() error {
	return nil
}
