package graph

import (
	"fmt"

	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/fuzzy"
)

// GraphClient turns text into knowledge fragments. It owns the chunking
// settings, the extraction prompt inputs and the merge threshold used to
// fold per-unit results together.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	tokenEncoder       string
	maxTokens          int
	parallelAiRequests int
	maxRetries         int
	threshold          int

	model      string
	thinking   string
	ontology   *ai.Ontology
	hints      string
	structured bool
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// MaxTokens is the unit size used when a file does not set its own. A nil
// Threshold uses fuzzy.DefaultThreshold. Thinking is passed to the model as
// the reasoning effort of every extraction request.
// Structured switches extraction to schema-constrained completions; otherwise
// the first JSON object of a free-form answer is used.
type NewGraphClientParams struct {
	TokenEncoder       string
	MaxTokens          int
	ParallelAiRequests int
	MaxRetries         int
	Threshold          *int

	Model      string
	Thinking   string
	Ontology   *ai.Ontology
	Hints      string
	Structured bool
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		TokenEncoder:       "o200k_base",
//		MaxTokens:          2000,
//		ParallelAiRequests: 4,
//		Threshold:          lo.ToPtr(90),
//		Ontology:           ontology,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	threshold := fuzzy.DefaultThreshold
	if params.Threshold != nil {
		threshold = *params.Threshold
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("match threshold must be between 0 and 100, got %d", threshold)
	}

	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "o200k_base"
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = 1
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &GraphClient{
		tokenEncoder:       encoder,
		maxTokens:          maxTokens,
		parallelAiRequests: parallel,
		maxRetries:         maxRetries,
		threshold:          threshold,
		model:              params.Model,
		thinking:           params.Thinking,
		ontology:           params.Ontology,
		hints:              params.Hints,
		structured:         params.Structured,
	}, nil
}

// Threshold returns the similarity cutoff used when folding fragments.
func (g *GraphClient) Threshold() int {
	return g.threshold
}
