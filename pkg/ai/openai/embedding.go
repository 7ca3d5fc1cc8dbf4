package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanair/aqkg/pkg/ai"

	"github.com/openai/openai-go/v3"
)

var _ ai.EmbeddingBatcher = (*GraphOpenAIClient)(nil)

// GenerateEmbedding embeds one node text or query. The vector has the
// configured dimension and unit length; blank input yields a zero vector.
//
// Example:
//
//	embedding, err := client.GenerateEmbedding(ctx, []byte("Diesel Cars (Source, vehicular)"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Embedding length:", len(embedding))
func (c *GraphOpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	res, err := c.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// GenerateEmbeddings embeds a batch of inputs in one request. It implements
// ai.EmbeddingBatcher.
func (c *GraphOpenAIClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	batch := ai.NewEmbeddingBatch(inputs, c.embeddingDim)
	if len(batch.Texts) == 0 {
		return batch.Out, nil
	}
	if c.EmbeddingClient == nil {
		return nil, fmt.Errorf("no embedding client configured (AI_EMBED_KEY is empty)")
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.embeddingLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.embeddingLock.Release(1)

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(rCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch.Texts},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request for %d texts failed: %w", len(batch.Texts), err)
	}
	c.usage.Add(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != len(batch.Texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(batch.Texts))
	}
	seen := make([]bool, len(batch.Texts))
	for _, e := range response.Data {
		i := int(e.Index)
		if i < 0 || i >= len(batch.Texts) || seen[i] {
			return nil, fmt.Errorf("unexpected embedding index %d", e.Index)
		}
		seen[i] = true
		batch.Set(i, ai.FitVector(e.Embedding, c.embeddingDim))
	}
	return batch.Out, nil
}
