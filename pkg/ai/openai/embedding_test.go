package openai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateEmbeddings(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		sent = req.Input
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 5, 0]},
				{"object": "embedding", "index": 0, "embedding": [3, 4, 12]}
			],
			"usage": {"prompt_tokens": 9, "total_tokens": 9}
		}`))
	}))
	defer srv.Close()

	c := NewGraphOpenAIClient(NewGraphOpenAIClientParams{
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   2,
		EmbeddingURL:   srv.URL,
		EmbeddingKey:   "test",
	})

	inputs := [][]byte{[]byte("Wind\tSpeed"), nil, []byte("Bus Lanes (MitigationMeasure, traffic)")}
	got, err := c.GenerateEmbeddings(context.Background(), inputs)
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error = %v", err)
	}

	if len(sent) != 2 || sent[0] != "Wind Speed" || sent[1] != "Bus Lanes (MitigationMeasure, traffic)" {
		t.Fatalf("sent inputs = %q", sent)
	}
	want := [][]float32{{0.6, 0.8}, {0, 0}, {0, 1}}
	for i := range want {
		if len(got[i]) != 2 {
			t.Fatalf("vector %d = %v", i, got[i])
		}
		for j := range want[i] {
			if math.Abs(float64(got[i][j]-want[i][j])) > 1e-6 {
				t.Fatalf("vector %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
	if m := c.GetMetrics(); m.InputTokens != 9 || m.TotalTokens != 9 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestGenerateEmbeddings_NoClient(t *testing.T) {
	c := NewGraphOpenAIClient(NewGraphOpenAIClientParams{})

	got, err := c.GenerateEmbeddings(context.Background(), [][]byte{[]byte("  ")})
	if err != nil {
		t.Fatalf("blank input should not need a client: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 768 {
		t.Fatalf("got %d vectors", len(got))
	}

	if _, err := c.GenerateEmbedding(context.Background(), []byte("Ozone")); err == nil || !strings.Contains(err.Error(), "AI_EMBED_KEY") {
		t.Fatalf("GenerateEmbedding() error = %v, want missing key", err)
	}
}
