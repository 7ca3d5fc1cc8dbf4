package pgx

import (
	"context"
	"fmt"

	"github.com/urbanair/aqkg/internal/util"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const (
	upsertNodeQuery = `
INSERT INTO kg_nodes (label, name, category)
VALUES ($1, $2, $3)
ON CONFLICT (label, name) DO NOTHING`

	upsertEdgeQuery = `
INSERT INTO kg_edges (type, from_id, to_id, value_range)
SELECT $1, f.id, t.id, $6
FROM kg_nodes f, kg_nodes t
WHERE f.label = $2 AND f.name = $3 AND t.label = $4 AND t.name = $5
ON CONFLICT (type, from_id, to_id, value_range) DO NOTHING`

	getNodesQuery = `
SELECT label, name, category
FROM kg_nodes
ORDER BY id`

	setEmbeddingQuery = `
UPDATE kg_nodes
SET embedding = $3
WHERE label = $1 AND name = $2`

	similarNodesQuery = `
SELECT name, category, 1 - (embedding <=> $2) AS score
FROM kg_nodes
WHERE label = $1 AND embedding IS NOT NULL
ORDER BY embedding <=> $2, id
LIMIT $3`
)

// SaveGraph upserts nodes and edges in one transaction. Edges whose
// endpoints do not exist insert nothing.
func (s *GraphDBStorage) SaveGraph(ctx context.Context, nodes []common.Node, edges []common.Edge) error {
	batch := &pgxv5.Batch{}
	for _, n := range nodes {
		if !common.IsLabel(n.Label) {
			return fmt.Errorf("unknown node label %q", n.Label)
		}
		batch.Queue(upsertNodeQuery,
			n.Label,
			util.StoredText(n.Name),
			util.StoredText(n.Category),
		)
	}
	for _, e := range edges {
		if !common.IsRelType(e.Type) {
			return fmt.Errorf("unknown relationship type %q", e.Type)
		}
		batch.Queue(upsertEdgeQuery,
			e.Type,
			e.From.Label,
			util.StoredText(e.From.Name),
			e.To.Label,
			util.StoredText(e.To.Name),
			util.StoredText(e.Range),
		)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	logger.Debug("[Postgres] Saved graph", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// GetNodes returns all nodes in insertion order.
func (s *GraphDBStorage) GetNodes(ctx context.Context) ([]common.Node, error) {
	rows, err := s.conn.Query(ctx, getNodesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nodes: %w", err)
	}

	nodes, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Node, error) {
		var n common.Node
		err := row.Scan(&n.Label, &n.Name, &n.Category)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan nodes: %w", err)
	}
	return nodes, nil
}

// SaveEmbeddings stores the vectors of existing nodes.
func (s *GraphDBStorage) SaveEmbeddings(ctx context.Context, embeddings []store.NodeEmbedding) error {
	batch := &pgxv5.Batch{}
	for _, e := range embeddings {
		batch.Queue(setEmbeddingQuery,
			e.Node.Label,
			util.StoredText(e.Node.Name),
			pgvector.NewVector(e.Embedding),
		)
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save embeddings: %w", err)
	}
	return nil
}

// SimilarNodes ranks the nodes of label by cosine similarity.
func (s *GraphDBStorage) SimilarNodes(
	ctx context.Context,
	label string,
	embedding []float32,
	topK int,
) ([]common.ScoredNode, error) {
	if !common.IsLabel(label) {
		return nil, fmt.Errorf("unknown node label %q", label)
	}

	rows, err := s.conn.Query(ctx, similarNodesQuery, label, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar nodes: %w", err)
	}

	nodes, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.ScoredNode, error) {
		n := common.ScoredNode{Node: common.Node{Label: label}}
		err := row.Scan(&n.Name, &n.Category, &n.Score)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan similar nodes: %w", err)
	}
	return nodes, nil
}

func (s *GraphDBStorage) sendBatch(ctx context.Context, batch *pgxv5.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
