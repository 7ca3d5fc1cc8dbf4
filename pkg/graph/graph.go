package graph

import (
	"context"
	"fmt"

	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/loader"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"
)

// ImportFragment projects f onto nodes and edges and writes them to the
// graph storage. Writing the same fragment twice leaves the graph unchanged.
func ImportFragment(ctx context.Context, storeClient store.GraphStorage, f *common.Fragment) error {
	if f == nil {
		return fmt.Errorf("fragment is nil")
	}

	nodes, edges := BuildGraph(f)
	if err := storeClient.SaveGraph(ctx, nodes, edges); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	logger.Info("[Graph] Imported fragment", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// ProcessGraph extracts knowledge from the provided files, merges it into
// base and imports the merged fragment into the graph storage.
//
// base is updated in place. A nil base starts from an empty fragment; the
// merged fragment is returned either way.
func (g *GraphClient) ProcessGraph(
	ctx context.Context,
	files []loader.GraphFile,
	base *common.Fragment,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
) (*common.Fragment, MergeStats, error) {
	logger.Info("[Graph] Processing", "total_files", len(files))

	extracted, stats, err := g.ProcessFiles(ctx, files, aiClient)
	if err != nil {
		return nil, MergeStats{}, err
	}

	if base == nil {
		base = common.NewFragment()
	}
	stats.Add(Merge(base, extracted, g.threshold))

	if storeClient != nil {
		if err := ImportFragment(ctx, storeClient, base); err != nil {
			return nil, MergeStats{}, err
		}
	}

	logger.Info("[Graph] Graph build completed",
		"entities", base.EntityCount(),
		"relations", base.RelationCount(),
	)
	return base, stats, nil
}
