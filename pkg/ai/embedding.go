package ai

import (
	"math"
	"strings"
	"sync"
)

// DefaultEmbeddingDim matches the vector indexes created by the graph
// stores.
const DefaultEmbeddingDim = 768

// EmbeddingText is the canonical form of an embedding input. Runs of
// whitespace collapse to one space, so "Diesel  Cars (Source,\nvehicular)"
// embeds the same as the node text written by the store.
func EmbeddingText(input []byte) string {
	return strings.Join(strings.Fields(string(input)), " ")
}

// EmbeddingBatch holds the non-blank inputs of a batch request. Blank
// inputs never reach the model and keep a zero vector in Out.
type EmbeddingBatch struct {
	Texts []string
	Out   [][]float32

	index []int
}

// NewEmbeddingBatch prepares inputs for one embedding request.
func NewEmbeddingBatch(inputs [][]byte, dim int) *EmbeddingBatch {
	b := &EmbeddingBatch{Out: make([][]float32, len(inputs))}
	for i, in := range inputs {
		text := EmbeddingText(in)
		if text == "" {
			b.Out[i] = make([]float32, dim)
			continue
		}
		b.index = append(b.index, i)
		b.Texts = append(b.Texts, text)
	}
	return b
}

// Set stores the vector of the i-th entry of Texts.
func (b *EmbeddingBatch) Set(i int, vec []float32) {
	b.Out[b.index[i]] = vec
}

// FitVector truncates or zero-pads v to dim values and scales the result
// to unit length.
func FitVector[T float32 | float64](v []T, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim && i < len(v); i++ {
		out[i] = float32(v[i])
	}
	return Normalize(out)
}

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// UsageMeter accumulates model usage across requests. The zero value is
// ready to use.
type UsageMeter struct {
	mu sync.Mutex
	m  ModelMetrics
}

// Add records one request.
func (u *UsageMeter) Add(m ModelMetrics) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.m.InputTokens += m.InputTokens
	u.m.OutputTokens += m.OutputTokens
	u.m.TotalTokens += m.TotalTokens
	u.m.DurationMs += m.DurationMs
	if u.m.DurationMs > 0 {
		tps := float64(u.m.TotalTokens) * 1000 / float64(u.m.DurationMs)
		u.m.TokenPerSecond = float32(math.Round(tps*100) / 100)
	}
}

// Snapshot returns the usage since the last Reset.
func (u *UsageMeter) Snapshot() ModelMetrics {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.m
}

func (u *UsageMeter) Reset() {
	u.mu.Lock()
	u.m = ModelMetrics{}
	u.mu.Unlock()
}
