package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/loader"
	"github.com/urbanair/aqkg/pkg/store/memory"

	"github.com/samber/lo"
)

// scriptedClient answers a completion with the response whose key occurs
// in the prompt.
type scriptedClient struct {
	mu        sync.Mutex
	responses map[string]string
	failures  int
	calls     int

	last        ai.GenerateOptions
	metrics     ai.ModelMetrics
	metricReads int
}

func (c *scriptedClient) GenerateCompletion(_ context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.metrics.InputTokens += 10
	c.last = ai.GenerateOptions{}
	for _, opt := range opts {
		opt(&c.last)
	}
	if c.failures > 0 {
		c.failures--
		return "", errors.New("model overloaded")
	}
	for key, res := range c.responses {
		if strings.Contains(prompt, key) {
			return res, nil
		}
	}
	return "no knowledge found", nil
}

func (c *scriptedClient) GenerateCompletionWithFormat(
	ctx context.Context,
	_ string,
	_ string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	res, err := c.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(ai.ExtractJSONObject(res), out)
}

func (c *scriptedClient) GenerateEmbedding(context.Context, []byte) ([]float32, error) {
	return []float32{1}, nil
}

func (c *scriptedClient) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = ai.ModelMetrics{}
}

func (c *scriptedClient) GetMetrics() ai.ModelMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metricReads++
	return c.metrics
}

const (
	firstSentence  = "Diesel cars emit NO2."
	secondSentence = "Buses burning diesel add PM10."
)

func newScriptedClient() *scriptedClient {
	return &scriptedClient{responses: map[string]string{
		firstSentence: "Here is the result:\n```json\n" + `{
  "pollutants": {"combustion": ["NO2"]},
  "pollution_sources": {"vehicular": ["Diesel Cars"]},
  "pollutant_source_relations": [["NO2", "Diesel Cars"]]
}` + "\n```",
		secondSentence: `{
  "pollutants": {"combustion": ["no2", "PM10"]},
  "pollution_sources": {"vehicular": ["diesel cars"]},
  "pollutant_source_relations": [["PM10", "diesel cars"], ["no2", "diesel cars"]]
}`,
	}}
}

type textLoader struct {
	text string
}

func (l *textLoader) GetFileText(context.Context, loader.GraphFile) ([]byte, error) {
	return []byte(l.text), nil
}

func newTestClient(t *testing.T, params NewGraphClientParams) *GraphClient {
	t.Helper()
	params.TokenEncoder = "cl100k_base"
	g, err := NewGraphClient(params)
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}
	return g
}

func TestNewGraphClient_Threshold(t *testing.T) {
	g := newTestClient(t, NewGraphClientParams{})
	if g.Threshold() != 85 {
		t.Fatalf("expected default threshold 85, got %d", g.Threshold())
	}
	if _, err := NewGraphClient(NewGraphClientParams{Threshold: lo.ToPtr(101)}); err == nil {
		t.Fatal("expected error for threshold above 100")
	}
	g = newTestClient(t, NewGraphClientParams{Threshold: lo.ToPtr(0)})
	if g.Threshold() != 0 {
		t.Fatalf("expected explicit threshold 0, got %d", g.Threshold())
	}
}

func TestDecodeExtraction(t *testing.T) {
	tests := []struct {
		name      string
		res       string
		pollutant string
		wantErr   bool
	}{
		{name: "plain object", res: `{"pollutants": {"gas": ["CO"]}}`, pollutant: "CO"},
		{name: "prose around object", res: "Sure!\n{\"pollutants\": {\"gas\": [\"SO2\"]}}\nDone.", pollutant: "SO2"},
		{name: "no object", res: "I could not find anything."},
		{name: "malformed relation", res: `{"pollutant_source_relations": [["NO2"]]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f common.Fragment
			err := decodeExtraction(tt.res, &f)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeExtraction() error = %v", err)
			}
			if f.MeteorologicalFactors == nil || f.PollutantSourceRelations == nil {
				t.Fatal("decoded fragment is not normalized")
			}
			flat := f.Pollutants.Flatten()
			if tt.pollutant == "" {
				if len(flat) != 0 {
					t.Fatalf("expected no pollutants, got %v", flat)
				}
				return
			}
			if len(flat) != 1 || flat[0] != tt.pollutant {
				t.Fatalf("pollutants = %v, want [%s]", flat, tt.pollutant)
			}
		})
	}
}

func TestExtractText_FoldsUnitsInOrder(t *testing.T) {
	for _, structured := range []bool{false, true} {
		g := newTestClient(t, NewGraphClientParams{
			MaxTokens:          1,
			ParallelAiRequests: 2,
			Structured:         structured,
		})

		f, stats, err := g.ExtractText(
			context.Background(),
			"report.txt",
			firstSentence+" "+secondSentence,
			newScriptedClient(),
		)
		if err != nil {
			t.Fatalf("ExtractText() error = %v", err)
		}

		got, _ := f.Pollutants.Get("combustion")
		if len(got) != 2 || got[0] != "NO2" || got[1] != "PM10" {
			t.Fatalf("structured=%v: pollutants = %v", structured, got)
		}
		if sources := f.PollutionSources.Flatten(); len(sources) != 1 || sources[0] != "Diesel Cars" {
			t.Fatalf("structured=%v: sources = %v", structured, sources)
		}
		if len(f.PollutantSourceRelations) != 2 {
			t.Fatalf("structured=%v: relations = %v", structured, f.PollutantSourceRelations)
		}
		if stats.RelationsDuplicate != 1 {
			t.Fatalf("structured=%v: expected one duplicate relation, got %+v", structured, stats)
		}
	}
}

func TestExtractText_RetriesFailedUnits(t *testing.T) {
	g := newTestClient(t, NewGraphClientParams{MaxRetries: 3})
	client := newScriptedClient()
	client.failures = 2

	f, _, err := g.ExtractText(context.Background(), "report.txt", firstSentence, client)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", client.calls)
	}
	if f.EntityCount() != 2 {
		t.Fatalf("expected 2 entities, got %d", f.EntityCount())
	}
}

func TestProcessFiles_InputOrderDecidesSpelling(t *testing.T) {
	g := newTestClient(t, NewGraphClientParams{})
	files := []loader.GraphFile{
		{ID: "b", FilePath: "b.txt", Loader: &textLoader{text: secondSentence}},
		{ID: "a", FilePath: "a.txt", Loader: &textLoader{text: firstSentence}},
	}

	f, _, err := g.ProcessFiles(context.Background(), files, newScriptedClient())
	if err != nil {
		t.Fatalf("ProcessFiles() error = %v", err)
	}
	got, _ := f.Pollutants.Get("combustion")
	if len(got) != 2 || got[0] != "no2" || got[1] != "PM10" {
		t.Fatalf("pollutants = %v", got)
	}
}

func TestProcessFiles_ModelUsageAndThinking(t *testing.T) {
	g := newTestClient(t, NewGraphClientParams{Thinking: "high"})
	files := []loader.GraphFile{
		{ID: "a", FilePath: "a.txt", Loader: &textLoader{text: firstSentence}},
	}
	client := newScriptedClient()
	client.metrics.InputTokens = 999

	if _, _, err := g.ProcessFiles(context.Background(), files, client); err != nil {
		t.Fatalf("ProcessFiles() error = %v", err)
	}
	if client.metricReads != 1 {
		t.Fatalf("expected one metrics read, got %d", client.metricReads)
	}
	if want := client.calls * 10; client.metrics.InputTokens != want {
		t.Fatalf("input tokens = %d, want %d (counters not reset?)", client.metrics.InputTokens, want)
	}
	if client.last.Thinking != "high" {
		t.Fatalf("thinking = %q, want high", client.last.Thinking)
	}
}

func TestImportFragment(t *testing.T) {
	ctx := context.Background()
	s := memory.NewGraphMemoryStorage()
	f := mustDecode(t, baseDocument)

	for range 2 {
		if err := ImportFragment(ctx, s, f); err != nil {
			t.Fatalf("ImportFragment() error = %v", err)
		}
	}

	nodes, _ := s.GetNodes(ctx)
	if len(nodes) != 8 {
		t.Fatalf("expected 8 nodes, got %d", len(nodes))
	}
	if len(s.Edges()) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(s.Edges()))
	}

	if err := ImportFragment(ctx, s, nil); err == nil {
		t.Fatal("expected error for nil fragment")
	}
}

func TestProcessGraph(t *testing.T) {
	ctx := context.Background()
	g := newTestClient(t, NewGraphClientParams{})
	s := memory.NewGraphMemoryStorage()
	base := mustDecode(t, baseDocument)

	files := []loader.GraphFile{{ID: "b", FilePath: "b.txt", Loader: &textLoader{text: secondSentence}}}
	merged, _, err := g.ProcessGraph(ctx, files, base, newScriptedClient(), s)
	if err != nil {
		t.Fatalf("ProcessGraph() error = %v", err)
	}
	if merged != base {
		t.Fatal("expected base to be updated in place")
	}

	got, _ := base.Pollutants.Get("combustion")
	if len(got) != 3 || got[2] != "PM10" {
		t.Fatalf("pollutants = %v", got)
	}

	nodes, _ := s.GetNodes(ctx)
	if len(nodes) != 9 {
		t.Fatalf("expected 9 stored nodes, got %d", len(nodes))
	}
}
