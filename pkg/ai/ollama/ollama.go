package ollama

import (
	"net/http"
	"net/url"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const (
	defaultDimensions     = 1024
	defaultTimeout        = 2 * time.Minute
	defaultMaxConcurrency = 4
)

// EmbeddingClient implements ai.EmbeddingClient on a local or remote Ollama
// server.
type EmbeddingClient struct {
	embeddingModel string
	dimensions     int
	maxTokens      int
	timeout        time.Duration

	reqLock *semaphore.Weighted
	metrics ai.MetricsRecorder

	Client *api.Client
}

// NewEmbeddingClientParams contains configuration options for creating a new
// EmbeddingClient. Zero values fall back to the package defaults.
type NewEmbeddingClientParams struct {
	EmbeddingModel string
	Dimensions     int
	MaxTokens      int
	Timeout        time.Duration

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewEmbeddingClient creates an Ollama embedding client. It connects to
// BaseURL, or to the address in OLLAMA_HOST when BaseURL is empty.
func NewEmbeddingClient(params NewEmbeddingClientParams) (*EmbeddingClient, error) {
	var u *url.URL
	if params.BaseURL != "" {
		parsed, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
		u = parsed
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{headers: headers, rt: http.DefaultTransport},
	}

	var cli *api.Client
	if u != nil {
		cli = api.NewClient(u, httpClient)
	} else {
		env, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
		cli = env
	}

	c := &EmbeddingClient{
		embeddingModel: params.EmbeddingModel,
		dimensions:     params.Dimensions,
		maxTokens:      params.MaxTokens,
		timeout:        params.Timeout,
		Client:         cli,
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
	c.reqLock = semaphore.NewWeighted(limit)

	return c, nil
}
