package store

import (
	"context"

	"github.com/urbanair/aqkg/pkg/common"
)

// GraphStorage persists the air quality graph and answers vector similarity
// queries over it.
//
// Writes are idempotent: nodes are upserted by (label, name) and edges by
// type, endpoints and range, so importing the same fragment twice leaves the
// graph unchanged. Edges are only created between nodes that exist.
type GraphStorage interface {
	SaveGraph(ctx context.Context, nodes []common.Node, edges []common.Edge) error
	GetNodes(ctx context.Context) ([]common.Node, error)

	SaveEmbeddings(ctx context.Context, embeddings []NodeEmbedding) error
	SimilarNodes(ctx context.Context, label string, embedding []float32, topK int) ([]common.ScoredNode, error)

	Close(ctx context.Context) error
}

// NodeEmbedding is the vector stored on one node.
type NodeEmbedding struct {
	Node      common.NodeKey
	Embedding []float32
}
