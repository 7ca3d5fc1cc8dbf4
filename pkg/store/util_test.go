package store_test

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/store"
	"github.com/urbanair/aqkg/pkg/store/memory"
)

// letterClient embeds text as a vector of letter counts.
type letterClient struct {
	calls int
}

func (c *letterClient) GenerateCompletion(context.Context, string, ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (c *letterClient) GenerateCompletionWithFormat(context.Context, string, string, string, any, ...ai.GenerateOption) error {
	return nil
}

func (c *letterClient) GenerateEmbedding(_ context.Context, input []byte) ([]float32, error) {
	c.calls++
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(string(input)) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func (c *letterClient) ResetMetrics()               {}
func (c *letterClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestIndexName(t *testing.T) {
	tests := map[string]string{
		common.LabelSource:               "source_embeddings",
		common.LabelMitigationMeasure:    "mitigation_measure_embeddings",
		common.LabelMeteorologicalFactor: "meteorological_factor_embeddings",
		common.LabelStreetCanyon:         "street_canyon_embeddings",
	}
	for label, want := range tests {
		if got := store.IndexName(label); got != want {
			t.Fatalf("IndexName(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestNodeText(t *testing.T) {
	tests := []struct {
		name string
		node common.Node
		want string
	}{
		{
			name: "with category",
			node: common.Node{Label: common.LabelSource, Name: "Diesel Cars", Category: "vehicular"},
			want: "Diesel Cars (Source, vehicular)",
		},
		{
			name: "without category",
			node: common.Node{Label: common.LabelStreetCanyon, Name: "Aspect Ratio"},
			want: "Aspect Ratio (StreetCanyon, Uncategorized)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.NodeText(tt.node); got != tt.want {
				t.Fatalf("NodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	v := store.Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("Normalize() = %v", v)
	}

	zero := store.Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector changed: %v", zero)
	}
}

func TestChunkRange(t *testing.T) {
	var windows [][2]int
	err := store.ChunkRange(5, 2, func(start, end int) error {
		windows = append(windows, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int{{0, 2}, {2, 4}, {4, 5}}
	if len(windows) != len(want) {
		t.Fatalf("got %v, want %v", windows, want)
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Fatalf("got %v, want %v", windows, want)
		}
	}
}

func TestEmbedNodes_EmptyGraph(t *testing.T) {
	client := &letterClient{}
	n, err := store.EmbedNodes(context.Background(), memory.NewGraphMemoryStorage(), client)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || client.calls != 0 {
		t.Fatalf("expected nothing embedded, got %d nodes and %d calls", n, client.calls)
	}
}

func seededStorage(t *testing.T) *memory.GraphMemoryStorage {
	t.Helper()
	s := memory.NewGraphMemoryStorage()
	nodes := []common.Node{
		{Label: common.LabelPollutant, Name: "NO2", Category: "combustion"},
		{Label: common.LabelSource, Name: "Diesel Cars", Category: "vehicular"},
		{Label: common.LabelSource, Name: "Wood Stoves", Category: "residential"},
	}
	if err := s.SaveGraph(context.Background(), nodes, nil); err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}
	return s
}

func TestEmbedNodesAndSearch(t *testing.T) {
	ctx := context.Background()
	s := seededStorage(t)
	client := &letterClient{}

	n, err := store.EmbedNodes(ctx, s, client)
	if err != nil {
		t.Fatalf("EmbedNodes: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 embedded nodes, got %d", n)
	}

	results, err := store.Search(ctx, s, client, "Wood Stoves (Source, residential)", "", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected only the two sources, got %+v", results)
	}
	if results[0].Name != "Wood Stoves" {
		t.Fatalf("expected Wood Stoves first, got %+v", results)
	}
	if math.Abs(results[0].Score-1) > 1e-5 {
		t.Fatalf("expected identical text to score 1, got %f", results[0].Score)
	}

	top, err := store.Search(ctx, s, client, "nitrogen dioxide", common.LabelPollutant, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(top) != 1 || top[0].Name != "NO2" {
		t.Fatalf("unexpected pollutant results: %+v", top)
	}
}

func TestSearch_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := seededStorage(t)
	client := &letterClient{}

	if _, err := store.Search(ctx, s, client, "   ", "", 0); err == nil {
		t.Fatal("expected error for empty query")
	}
	if _, err := store.Search(ctx, s, client, "cars", "Vehicle", 0); err == nil {
		t.Fatal("expected error for unknown label")
	}
	if client.calls != 0 {
		t.Fatalf("expected no embedding calls, got %d", client.calls)
	}
}
