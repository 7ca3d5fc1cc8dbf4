package ollama

import (
	"net/http"
	"net/url"

	"github.com/urbanair/aqkg/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements the ai.GraphAIClient interface using Ollama as
// the backend, for running extraction and embeddings on locally hosted models.
type GraphOllamaClient struct {
	embeddingModel   string
	embeddingDim     int
	descriptionModel string
	extractionModel  string
	tokenEncoder     string

	reqLock    *semaphore.Weighted
	timeoutMin int

	usage ai.UsageMeter

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
//
// TokenEncoder is only used to estimate the prompt size so the context
// window can be raised for long inputs.
type NewGraphOllamaClientParams struct {
	EmbeddingModel   string
	EmbeddingDim     int
	DescriptionModel string
	ExtractionModel  string
	TokenEncoder     string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	TimeoutMin            int
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based AI client with the specified configuration.
// It connects to the Ollama server at the given BaseURL (or the default if empty)
// and uses the configured models for different AI operations.
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		u = &url.URL{Scheme: "http", Host: "127.0.0.1:11434"}
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: headers,
			rt:      http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	parallel := params.MaxConcurrentRequests
	if parallel <= 0 {
		parallel = 1
	}
	timeout := params.TimeoutMin
	if timeout <= 0 {
		timeout = 10
	}
	dim := params.EmbeddingDim
	if dim <= 0 {
		dim = ai.DefaultEmbeddingDim
	}
	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "o200k_base"
	}

	return &GraphOllamaClient{
		embeddingModel:   params.EmbeddingModel,
		embeddingDim:     dim,
		descriptionModel: params.DescriptionModel,
		extractionModel:  params.ExtractionModel,
		tokenEncoder:     encoder,

		reqLock:    semaphore.NewWeighted(parallel),
		timeoutMin: timeout,

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}

// ResetMetrics clears the usage recorded since the last reset.
func (c *GraphOllamaClient) ResetMetrics() { c.usage.Reset() }

// GetMetrics returns token usage and timing of all chat and embedding
// requests since the last reset.
func (c *GraphOllamaClient) GetMetrics() ai.ModelMetrics { return c.usage.Snapshot() }
