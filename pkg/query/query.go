package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"
)

// Answer is the result of a question against the graph.
type Answer struct {
	Answer string              `json:"answer"`
	Nodes  []common.ScoredNode `json:"nodes"`
}

// QueryOptions tunes retrieval and generation.
type QueryOptions struct {
	Model         string
	Thinking      string
	SystemPrompts []string
	Label         string
	TopK          int
	Tracer        Tracer
}

// QueryClient answers questions from the nodes most similar to the
// question. It retrieves context with store.Search and never calls the
// model when nothing was retrieved.
type QueryClient struct {
	aiClient      ai.GraphAIClient
	storageClient store.GraphStorage
	options       QueryOptions
}

// NewQueryClient creates a QueryClient. An empty label searches sources and
// a non-positive TopK uses store.DefaultTopK.
func NewQueryClient(
	aiClient ai.GraphAIClient,
	storageClient store.GraphStorage,
	options QueryOptions,
) *QueryClient {
	if options.Label == "" {
		options.Label = store.DefaultSearchLabel
	}
	if options.TopK <= 0 {
		options.TopK = store.DefaultTopK
	}
	return &QueryClient{
		aiClient:      aiClient,
		storageClient: storageClient,
		options:       options,
	}
}

// Ask retrieves the nodes most similar to question and lets the model
// answer from them.
func (c *QueryClient) Ask(ctx context.Context, question string) (Answer, error) {
	nodes, err := store.Search(ctx, c.storageClient, c.aiClient, question, c.options.Label, c.options.TopK)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to retrieve context: %w", err)
	}
	RecordQueriedLabels(c.options.Tracer, c.options.Label)
	RecordRetrievedNodes(c.options.Tracer, nodes...)

	if len(nodes) == 0 {
		logger.Debug("[Query] No similar nodes found", "label", c.options.Label)
		return Answer{Answer: ai.NoDataAnswer, Nodes: nodes}, nil
	}

	prompt := fmt.Sprintf(ai.QueryPrompt, BuildContext(nodes), question)

	opts := []ai.GenerateOption{}
	if len(c.options.SystemPrompts) > 0 {
		opts = append(opts, ai.WithSystemPrompts(c.options.SystemPrompts...))
	}
	if c.options.Model != "" {
		opts = append(opts, ai.WithModel(c.options.Model))
	}
	if c.options.Thinking != "" {
		opts = append(opts, ai.WithThinking(c.options.Thinking))
	}

	resp, err := c.aiClient.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to generate answer from AI:\n%w", err)
	}

	return Answer{Answer: strings.TrimSpace(resp), Nodes: nodes}, nil
}

// BuildContext renders retrieved nodes one per line as
// "<label>: <name> (category: <category>, score: <similarity>)".
func BuildContext(nodes []common.ScoredNode) string {
	var b strings.Builder
	for _, n := range nodes {
		category := n.Category
		if category == "" {
			category = "Uncategorized"
		}
		fmt.Fprintf(&b, "%s: %s (category: %s, score: %.3f)\n", n.Label, n.Name, category, n.Score)
	}
	return b.String()
}
