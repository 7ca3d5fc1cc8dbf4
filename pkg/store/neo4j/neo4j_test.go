package neo4j

import (
	"strings"
	"testing"
)

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(384)
	if len(stmts) != 10 {
		t.Fatalf("expected 10 statements, got %d", len(stmts))
	}

	wantConstraint := "CREATE CONSTRAINT mitigation_measure_embeddings_name_unique IF NOT EXISTS FOR (n:MitigationMeasure) REQUIRE n.name IS UNIQUE"
	found := false
	for _, s := range stmts {
		if s == wantConstraint {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing constraint statement %q", wantConstraint)
	}

	for _, s := range stmts {
		if strings.HasPrefix(s, "CREATE VECTOR INDEX source_embeddings ") {
			if !strings.Contains(s, "`vector.dimensions`: 384") {
				t.Fatalf("vector index without configured dimension: %s", s)
			}
			return
		}
	}
	t.Fatal("missing source_embeddings vector index")
}

func TestToFloat64(t *testing.T) {
	got := toFloat64([]float32{0.5, -1})
	if len(got) != 2 || got[0] != 0.5 || got[1] != -1 {
		t.Fatalf("toFloat64() = %v", got)
	}
}
