package openai

import (
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const (
	defaultDimensions     = 1024
	defaultTimeout        = 2 * time.Minute
	defaultMaxConcurrency = 4
)

// EmbeddingClient implements ai.EmbeddingClient against any OpenAI
// compatible embeddings endpoint.
//
// An EmbeddingClient should be created using NewEmbeddingClient.
type EmbeddingClient struct {
	embeddingModel string
	dimensions     int
	maxTokens      int
	timeout        time.Duration

	embeddingLock *semaphore.Weighted
	metrics       ai.MetricsRecorder

	Client *openai.Client
}

// NewEmbeddingClientParams defines the configuration parameters for creating
// a new EmbeddingClient. BaseURL and ApiKey configure the endpoint; an empty
// BaseURL targets api.openai.com.
type NewEmbeddingClientParams struct {
	EmbeddingModel string
	Dimensions     int
	MaxTokens      int
	Timeout        time.Duration

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

// NewEmbeddingClient creates and returns a new EmbeddingClient.
//
// Example:
//
//	client := openai.NewEmbeddingClient(openai.NewEmbeddingClientParams{
//		EmbeddingModel: "text-embedding-3-small",
//		BaseURL:        "https://api.openai.com/v1",
//		ApiKey:         os.Getenv("OPENAI_API_KEY"),
//	})
func NewEmbeddingClient(params NewEmbeddingClientParams) *EmbeddingClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.ApiKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	c := &EmbeddingClient{
		embeddingModel: params.EmbeddingModel,
		dimensions:     params.Dimensions,
		maxTokens:      params.MaxTokens,
		timeout:        params.Timeout,
		Client:         &client,
	}
	if c.embeddingModel == "" {
		c.embeddingModel = ai.DefaultEmbeddingModel
	}
	if c.dimensions <= 0 {
		c.dimensions = defaultDimensions
	}
	if c.maxTokens <= 0 {
		c.maxTokens = ai.DefaultMaxEmbeddingTokens
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	limit := params.MaxConcurrentRequests
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}
	c.embeddingLock = semaphore.NewWeighted(limit)

	return c
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *EmbeddingClient) ResetMetrics() {
	c.metrics.Reset()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *EmbeddingClient) GetMetrics() ai.ModelMetrics {
	return c.metrics.Snapshot()
}
