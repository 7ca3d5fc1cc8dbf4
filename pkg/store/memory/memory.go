// Package memory keeps the graph in process memory. It backs the CLI when
// no database is configured and the tests of the packages above the store.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/store"
)

var _ store.GraphStorage = (*GraphMemoryStorage)(nil)

// GraphMemoryStorage implements store.GraphStorage with maps and a linear
// cosine scan. It is safe for concurrent use.
type GraphMemoryStorage struct {
	mu         sync.RWMutex
	nodes      []common.Node
	index      map[common.NodeKey]int
	edges      []common.Edge
	edgeIndex  map[common.Edge]struct{}
	embeddings map[common.NodeKey][]float32
}

// NewGraphMemoryStorage returns an empty graph.
func NewGraphMemoryStorage() *GraphMemoryStorage {
	return &GraphMemoryStorage{
		index:      make(map[common.NodeKey]int),
		edgeIndex:  make(map[common.Edge]struct{}),
		embeddings: make(map[common.NodeKey][]float32),
	}
}

// SaveGraph upserts nodes by key and keeps the first category seen. Edges
// with a missing endpoint are dropped.
func (s *GraphMemoryStorage) SaveGraph(_ context.Context, nodes []common.Node, edges []common.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range nodes {
		if !common.IsLabel(n.Label) {
			return fmt.Errorf("unknown node label %q", n.Label)
		}
		if _, ok := s.index[n.Key()]; ok {
			continue
		}
		s.index[n.Key()] = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}
	for _, e := range edges {
		_, fromOK := s.index[e.From]
		_, toOK := s.index[e.To]
		if !fromOK || !toOK {
			continue
		}
		if _, ok := s.edgeIndex[e]; ok {
			continue
		}
		s.edgeIndex[e] = struct{}{}
		s.edges = append(s.edges, e)
	}
	return nil
}

// GetNodes returns all nodes in insertion order.
func (s *GraphMemoryStorage) GetNodes(_ context.Context) ([]common.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.nodes), nil
}

// Edges returns all edges in insertion order.
func (s *GraphMemoryStorage) Edges() []common.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges)
}

// SaveEmbeddings stores vectors for existing nodes and ignores unknown ones.
func (s *GraphMemoryStorage) SaveEmbeddings(_ context.Context, embeddings []store.NodeEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embeddings {
		if _, ok := s.index[e.Node]; !ok {
			continue
		}
		s.embeddings[e.Node] = slices.Clone(e.Embedding)
	}
	return nil
}

// SimilarNodes ranks the embedded nodes of label by cosine similarity.
// Equal scores keep insertion order.
func (s *GraphMemoryStorage) SimilarNodes(
	_ context.Context,
	label string,
	embedding []float32,
	topK int,
) ([]common.ScoredNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]common.ScoredNode, 0)
	for _, n := range s.nodes {
		if n.Label != label {
			continue
		}
		vec, ok := s.embeddings[n.Key()]
		if !ok {
			continue
		}
		scored = append(scored, common.ScoredNode{Node: n, Score: cosine(embedding, vec)})
	}
	slices.SortStableFunc(scored, func(a, b common.ScoredNode) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Close is a no-op.
func (s *GraphMemoryStorage) Close(context.Context) error {
	return nil
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
