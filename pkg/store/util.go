package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSearchLabel is searched when no label is given.
	DefaultSearchLabel = common.LabelSource
	// DefaultTopK is the number of nodes returned when no limit is given.
	DefaultTopK = 5

	embedChunkSize = 64
)

// ChunkRange calls fn for consecutive [start, end) windows of at most
// chunkSize elements.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// IndexName returns the vector index name of a label, e.g.
// "MitigationMeasure" becomes "mitigation_measure_embeddings".
func IndexName(label string) string {
	var sb strings.Builder
	for i, r := range label {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	sb.WriteString("_embeddings")
	return sb.String()
}

// NodeText is the text embedded for a node: "<name> (<label>, <category>)".
// Nodes without a category are described as "Uncategorized".
func NodeText(n common.Node) string {
	category := n.Category
	if category == "" {
		category = "Uncategorized"
	}
	return fmt.Sprintf("%s (%s, %s)", n.Name, n.Label, category)
}

// Normalize scales v to unit length in place. Zero vectors are left as is.
// Vectors from the bundled clients already have unit length; other
// clients may not.
func Normalize(v []float32) []float32 {
	return ai.Normalize(v)
}

// GenerateEmbeddings embeds all inputs, in one request when the client
// supports batching and concurrently otherwise.
func GenerateEmbeddings(
	ctx context.Context,
	client ai.GraphAIClient,
	inputs [][]byte,
) ([][]float32, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	if b, ok := client.(ai.EmbeddingBatcher); ok {
		return b.GenerateEmbeddings(ctx, inputs)
	}

	out := make([][]float32, len(inputs))

	eg, ectx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		eg.Go(func() error {
			emb, err := client.GenerateEmbedding(ectx, in)
			if err != nil {
				return err
			}
			out[i] = emb
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// EmbedNodes embeds every named node of the graph and stores the unit
// length vectors. It returns the number of embedded nodes; an empty graph
// is not an error.
func EmbedNodes(ctx context.Context, s GraphStorage, client ai.GraphAIClient) (int, error) {
	nodes, err := s.GetNodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch nodes: %w", err)
	}
	if len(nodes) == 0 {
		logger.Warn("[Embed] No nodes found in the graph")
		return 0, nil
	}

	err = ChunkRange(len(nodes), embedChunkSize, func(start, end int) error {
		chunk := nodes[start:end]
		inputs := make([][]byte, len(chunk))
		for i, n := range chunk {
			inputs[i] = []byte(NodeText(n))
		}

		vectors, err := GenerateEmbeddings(ctx, client, inputs)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vectors) != len(chunk) {
			return fmt.Errorf("expected %d embeddings, got %d", len(chunk), len(vectors))
		}

		rows := make([]NodeEmbedding, len(chunk))
		for i, n := range chunk {
			rows[i] = NodeEmbedding{Node: n.Key(), Embedding: Normalize(vectors[i])}
		}
		logger.Debug("[Embed] Saving embeddings", "count", len(rows))
		return s.SaveEmbeddings(ctx, rows)
	})
	if err != nil {
		return 0, err
	}

	logger.Info("[Embed] Embeddings generated and stored", "nodes", len(nodes))
	return len(nodes), nil
}

// Search embeds query and returns the topK most similar nodes of label.
// An empty label searches sources and a non-positive topK returns
// DefaultTopK results.
func Search(
	ctx context.Context,
	s GraphStorage,
	client ai.GraphAIClient,
	query string,
	label string,
	topK int,
) ([]common.ScoredNode, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if label == "" {
		label = DefaultSearchLabel
	}
	if !common.IsLabel(label) {
		return nil, fmt.Errorf("unknown node label %q", label)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := client.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.SimilarNodes(ctx, label, Normalize(embedding), topK)
}
