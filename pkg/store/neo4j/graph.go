package neo4j

import (
	"context"
	"fmt"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Labels and relationship types cannot be query parameters, so they are
// formatted into the statements after being checked against common.Labels.
const (
	mergeNodesQuery = `
UNWIND $nodes AS n
MERGE (x:%s {name: n.name})
ON CREATE SET x.category = n.category
`
	mergeEdgesQuery = `
UNWIND $rels AS r
MATCH (a:%s {name: r.from})
MATCH (b:%s {name: r.to})
MERGE (a)-[e:%s {range: r.range}]->(b)
`
	fetchNodesQuery = `
MATCH (n)
WHERE n.name IS NOT NULL
RETURN labels(n)[0] AS label, n.name AS name, coalesce(n.category, "") AS category
ORDER BY label, name
`
	setEmbeddingsQuery = `
UNWIND $rows AS r
MATCH (n:%s {name: r.name})
SET n.embedding = r.embedding
`
	similarNodesQuery = `
CALL db.index.vector.queryNodes($index, $k, $embedding)
YIELD node, score
RETURN node.name AS name, coalesce(node.category, "") AS category, score
`
)

type edgeGroup struct {
	relType string
	from    string
	to      string
}

// SaveGraph upserts all nodes and edges in one write transaction.
func (s *GraphNeo4jStorage) SaveGraph(ctx context.Context, nodes []common.Node, edges []common.Edge) error {
	nodesByLabel := make(map[string][]map[string]any)
	for _, n := range nodes {
		if !common.IsLabel(n.Label) {
			return fmt.Errorf("unknown node label %q", n.Label)
		}
		nodesByLabel[n.Label] = append(nodesByLabel[n.Label], map[string]any{
			"name":     n.Name,
			"category": n.Category,
		})
	}

	var groups []edgeGroup
	edgesByGroup := make(map[edgeGroup][]map[string]any)
	for _, e := range edges {
		if !common.IsRelType(e.Type) {
			return fmt.Errorf("unknown relationship type %q", e.Type)
		}
		if !common.IsLabel(e.From.Label) || !common.IsLabel(e.To.Label) {
			return fmt.Errorf("edge %s references an unknown label", e.Type)
		}
		g := edgeGroup{relType: e.Type, from: e.From.Label, to: e.To.Label}
		if _, ok := edgesByGroup[g]; !ok {
			groups = append(groups, g)
		}
		edgesByGroup[g] = append(edgesByGroup[g], map[string]any{
			"from":  e.From.Name,
			"to":    e.To.Name,
			"range": e.Range,
		})
	}

	session := s.session(ctx, neo4jv5.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		for _, label := range common.Labels {
			rows := nodesByLabel[label]
			if len(rows) == 0 {
				continue
			}
			if err := run(ctx, tx, fmt.Sprintf(mergeNodesQuery, label), map[string]any{"nodes": rows}); err != nil {
				return nil, err
			}
		}
		for _, g := range groups {
			query := fmt.Sprintf(mergeEdgesQuery, g.from, g.to, g.relType)
			if err := run(ctx, tx, query, map[string]any{"rels": edgesByGroup[g]}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	logger.Debug("[Neo4j] Saved graph", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// GetNodes returns every node that has a name.
func (s *GraphNeo4jStorage) GetNodes(ctx context.Context) ([]common.Node, error) {
	session := s.session(ctx, neo4jv5.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fetchNodesQuery, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		nodes := make([]common.Node, 0, len(records))
		for _, rec := range records {
			nodes = append(nodes, common.Node{
				Label:    getString(rec, "label"),
				Name:     getString(rec, "name"),
				Category: getString(rec, "category"),
			})
		}
		return nodes, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nodes: %w", err)
	}
	return out.([]common.Node), nil
}

// SaveEmbeddings sets the embedding property of the given nodes.
func (s *GraphNeo4jStorage) SaveEmbeddings(ctx context.Context, embeddings []store.NodeEmbedding) error {
	rowsByLabel := make(map[string][]map[string]any)
	for _, e := range embeddings {
		if !common.IsLabel(e.Node.Label) {
			return fmt.Errorf("unknown node label %q", e.Node.Label)
		}
		rowsByLabel[e.Node.Label] = append(rowsByLabel[e.Node.Label], map[string]any{
			"name":      e.Node.Name,
			"embedding": toFloat64(e.Embedding),
		})
	}

	session := s.session(ctx, neo4jv5.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		for _, label := range common.Labels {
			rows := rowsByLabel[label]
			if len(rows) == 0 {
				continue
			}
			if err := run(ctx, tx, fmt.Sprintf(setEmbeddingsQuery, label), map[string]any{"rows": rows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save embeddings: %w", err)
	}
	return nil
}

// SimilarNodes queries the vector index of label.
func (s *GraphNeo4jStorage) SimilarNodes(
	ctx context.Context,
	label string,
	embedding []float32,
	topK int,
) ([]common.ScoredNode, error) {
	if !common.IsLabel(label) {
		return nil, fmt.Errorf("unknown node label %q", label)
	}

	session := s.session(ctx, neo4jv5.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, similarNodesQuery, map[string]any{
			"index":     store.IndexName(label),
			"k":         topK,
			"embedding": toFloat64(embedding),
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		nodes := make([]common.ScoredNode, 0, len(records))
		for _, rec := range records {
			nodes = append(nodes, common.ScoredNode{
				Node: common.Node{
					Label:    label,
					Name:     getString(rec, "name"),
					Category: getString(rec, "category"),
				},
				Score: getFloat64(rec, "score"),
			})
		}
		return nodes, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", store.IndexName(label), err)
	}
	return out.([]common.ScoredNode), nil
}

func run(ctx context.Context, tx neo4jv5.ManagedTransaction, query string, params map[string]any) error {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func getString(rec *neo4jv5.Record, key string) string {
	val, ok := rec.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getFloat64(rec *neo4jv5.Record, key string) float64 {
	val, ok := rec.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
