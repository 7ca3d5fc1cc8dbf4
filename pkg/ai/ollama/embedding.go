package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanair/aqkg/pkg/ai"

	"github.com/ollama/ollama/api"
)

var _ ai.EmbeddingBatcher = (*GraphOllamaClient)(nil)

// GenerateEmbedding embeds one node text or query on Ollama. The vector has
// the configured dimension and unit length; blank input yields a zero
// vector.
func (c *GraphOllamaClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	res, err := c.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// GenerateEmbeddings embeds a batch of inputs with a single /api/embed call.
// It implements ai.EmbeddingBatcher.
func (c *GraphOllamaClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	batch := ai.NewEmbeddingBatch(inputs, c.embeddingDim)
	if len(batch.Texts) == 0 {
		return batch.Out, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: batch.Texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request for %d texts failed: %w", len(batch.Texts), err)
	}
	c.usage.Add(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) != len(batch.Texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(batch.Texts))
	}
	for i, v := range res.Embeddings {
		batch.Set(i, ai.FitVector(v, c.embeddingDim))
	}
	return batch.Out, nil
}
