package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urbanair/aqkg/pkg/common"
)

const baseDoc = `{
	"pollutants": {"combustion": ["NO2"]},
	"pollution_sources": {"traffic": ["Diesel Cars"]},
	"mitigation_measures": {},
	"meteorological_factors": [],
	"street_canyons": [],
	"pollutant_source_relations": [["NO2", "Diesel Cars"]],
	"source_mitigation_relations": [],
	"meteorological_dispersion_relations": [],
	"street_canyon_dispersion_relations": []
}`

const incomingDoc = `{
	"pollutants": {"combustion": ["no2", "PM10"]},
	"pollution_sources": {"traffic": ["diesel cars"]},
	"pollutant_source_relations": [["PM10", "diesel cars"], ["no2", "Diesel Cars"]]
}`

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	t.Setenv("GRAPH_BACKEND", "memory")
	var stdout, stderr bytes.Buffer
	args = append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	code := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()

	good := writeFile(t, dir, "good.json", baseDoc)
	out, _, code := run(t, "validate", good)
	if code != 0 {
		t.Fatalf("exit code = %d, output %q", code, out)
	}
	if out != "✅ JSON validation passed. All entities explicitly match correctly.\n" {
		t.Fatalf("output = %q", out)
	}

	bad := writeFile(t, dir, "bad.json", `{
		"pollutants": {}, "pollution_sources": {}, "mitigation_measures": {},
		"meteorological_factors": [], "street_canyons": [],
		"pollutant_source_relations": [["PM10", "Buses"]],
		"source_mitigation_relations": [], "meteorological_dispersion_relations": [],
		"street_canyon_dispersion_relations": []
	}`)
	out, stderr, code := run(t, "validate", bad)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	want := "🚨 JSON validation errors found:\n" +
		"- Missing pollutant entity: 'PM10' in pollutant-source relation.\n" +
		"- Missing source entity: 'Buses' in pollutant-source relation.\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
	if stderr != "" {
		t.Fatalf("unexpected stderr %q", stderr)
	}

	for _, doc := range []string{`{}`, `{"foo": 1}`} {
		missing := writeFile(t, dir, "missing.json", doc)
		out, stderr, code = run(t, "validate", missing)
		if code != 1 || !strings.Contains(stderr, "missing top-level key") {
			t.Fatalf("%s: code=%d stderr=%q", doc, code, stderr)
		}
		if out != "" {
			t.Fatalf("%s: unexpected report %q", doc, out)
		}
	}

	partial := writeFile(t, dir, "partial.json", `{"pollutant_source_relations": [["PM10", "Buses"]]}`)
	out, _, code = run(t, "validate", "--lenient", partial)
	if code != 1 || out != want {
		t.Fatalf("lenient: code=%d output=%q", code, out)
	}
}

func TestMergeCmd(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "AQ.json", baseDoc)
	incoming := writeFile(t, dir, "new.json", incomingDoc)
	output := filepath.Join(dir, "out", "merged.json")

	out, stderr, code := run(t, "merge", "--base", base, "--incoming", incoming, "--output", output)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if out != "✅ JSON files merged successfully into: "+output+"\n" {
		t.Fatalf("output = %q", out)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	merged, err := common.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	pollutants, _ := merged.Pollutants.Get("combustion")
	if strings.Join(pollutants, ",") != "NO2,PM10" {
		t.Fatalf("pollutants = %v", pollutants)
	}
	sources, _ := merged.PollutionSources.Get("traffic")
	if strings.Join(sources, ",") != "Diesel Cars" {
		t.Fatalf("sources = %v", sources)
	}
	want := []common.Pair{{"NO2", "Diesel Cars"}, {"PM10", "Diesel Cars"}}
	if len(merged.PollutantSourceRelations) != len(want) {
		t.Fatalf("relations = %v", merged.PollutantSourceRelations)
	}
	for i, p := range want {
		if merged.PollutantSourceRelations[i] != p {
			t.Fatalf("relation %d = %v, want %v", i, merged.PollutantSourceRelations[i], p)
		}
	}

	original, _ := os.ReadFile(base)
	if string(original) != baseDoc {
		t.Fatal("base document changed although --output was set")
	}
}

func TestMergeCmd_ThresholdFlag(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "AQ.json", baseDoc)
	incoming := writeFile(t, dir, "new.json", `{"pollution_sources": {"traffic": ["Diesel Car"]}}`)

	if _, stderr, code := run(t, "merge", "--base", base, "--incoming", incoming, "--threshold", "100"); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	merged, err := common.Decode(mustRead(t, base))
	if err != nil {
		t.Fatal(err)
	}
	sources, _ := merged.PollutionSources.Get("traffic")
	if len(sources) != 2 {
		t.Fatalf("threshold 100 should keep both spellings, got %v", sources)
	}
}

func TestMergeCmd_MissingBaseStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "AQ.json")
	incoming := writeFile(t, dir, "new.json", baseDoc)

	if _, stderr, code := run(t, "merge", "--base", base, "--incoming", incoming); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	merged, err := common.Decode(mustRead(t, base))
	if err != nil {
		t.Fatal(err)
	}
	if merged.EntityCount() != 2 || merged.RelationCount() != 1 {
		t.Fatalf("merged = %d entities, %d relations", merged.EntityCount(), merged.RelationCount())
	}
}

func TestExportCmd(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "AQ.json", baseDoc)
	output := filepath.Join(dir, "AQgraph.json")

	out, stderr, code := run(t, "export", input, "--output", output)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if out != "✅ JSON saved to: "+output+"\n" {
		t.Fatalf("output = %q", out)
	}

	var doc struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	if err := json.Unmarshal(mustRead(t, output), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Nodes) != 2 || len(doc.Edges) != 1 {
		t.Fatalf("export = %d nodes, %d edges", len(doc.Nodes), len(doc.Edges))
	}
}

func TestImportCmd(t *testing.T) {
	input := writeFile(t, t.TempDir(), "AQ.json", baseDoc)
	out, stderr, code := run(t, "import", input, "--backend", "memory")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if out != "✅ Data successfully imported into the graph!\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestSchemaCmd(t *testing.T) {
	out, stderr, code := run(t, "schema")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(out), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", schema)
	}
	for _, key := range common.FragmentKeys {
		if _, ok := props[key]; !ok {
			t.Fatalf("schema misses %s", key)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	_, stderr, code := run(t, "schema", "--backend", "sqlite")
	if code != 1 || !strings.Contains(stderr, "invalid config") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
