package openai

import (
	"github.com/urbanair/aqkg/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// GraphOpenAIClient talks to an OpenAI-compatible API. Chat (extraction and
// question answering) and embeddings may live on different endpoints, so
// each gets its own client.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	embeddingModel   string
	embeddingDim     int
	descriptionModel string
	extractionModel  string

	chatURL    string
	timeoutMin int

	reqLock       *semaphore.Weighted
	embeddingLock *semaphore.Weighted

	usage ai.UsageMeter

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for creating
// a new GraphOpenAIClient.
//
// ExtractionModel is used for knowledge extraction, DescriptionModel for
// answering questions. EmbeddingDim truncates or pads every vector so it
// matches the vector index of the graph store.
type NewGraphOpenAIClientParams struct {
	EmbeddingModel   string
	EmbeddingDim     int
	DescriptionModel string
	ExtractionModel  string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	MaxConcurrentRequests int64
	TimeoutMin            int
}

// NewGraphOpenAIClient creates a client for the given endpoints.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		EmbeddingModel:  "text-embedding-3-small",
//		EmbeddingDim:    768,
//		ExtractionModel: "gpt-4o-mini",
//		ChatKey:         os.Getenv("AI_CHAT_KEY"),
//		EmbeddingKey:    os.Getenv("AI_EMBED_KEY"),
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	parallel := params.MaxConcurrentRequests
	if parallel <= 0 {
		parallel = 4
	}
	timeout := params.TimeoutMin
	if timeout <= 0 {
		timeout = 5
	}
	dim := params.EmbeddingDim
	if dim <= 0 {
		dim = ai.DefaultEmbeddingDim
	}

	return &GraphOpenAIClient{
		embeddingModel:   params.EmbeddingModel,
		embeddingDim:     dim,
		descriptionModel: params.DescriptionModel,
		extractionModel:  params.ExtractionModel,

		chatURL:    params.ChatURL,
		timeoutMin: timeout,

		reqLock:       semaphore.NewWeighted(parallel),
		embeddingLock: semaphore.NewWeighted(parallel),

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// ResetMetrics clears the usage recorded since the last reset.
func (c *GraphOpenAIClient) ResetMetrics() { c.usage.Reset() }

// GetMetrics returns token usage and timing of all chat and embedding
// requests since the last reset.
func (c *GraphOpenAIClient) GetMetrics() ai.ModelMetrics { return c.usage.Snapshot() }
