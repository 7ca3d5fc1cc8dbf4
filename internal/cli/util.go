package cli

import (
	"context"
	"encoding/json"

	"github.com/urbanair/aqkg/internal/config"
	"github.com/urbanair/aqkg/internal/storage"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/graph"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"
)

func newDocumentStore(ctx context.Context, s *state) (*storage.DocumentStore, error) {
	return config.NewDocumentStore(ctx, s.cfg)
}

// openStorage connects to the configured graph backend, prompting for the
// Neo4j password first when needed.
func openStorage(ctx context.Context, s *state) (store.GraphStorage, error) {
	if err := ensureNeo4jPassword(s.cfg, promptOut); err != nil {
		return nil, err
	}
	return config.NewGraphStorage(ctx, s.cfg)
}

func closeStorage(ctx context.Context, st store.GraphStorage) {
	if err := st.Close(ctx); err != nil {
		logger.Warn("[CLI] Failed to close graph storage", "err", err)
	}
}

func decodeFragment(data []byte, strict bool) (*common.Fragment, error) {
	if strict {
		return common.DecodeStrict(data)
	}
	return common.Decode(data)
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func logMergeStats(stats graph.MergeStats) {
	logger.Info("[Merge] Merge finished",
		"entities_added", stats.EntitiesAdded,
		"entities_matched", stats.EntitiesMatched,
		"factors_inserted", stats.FactorsInserted,
		"relations_added", stats.RelationsAdded,
		"relations_duplicate", stats.RelationsDuplicate,
	)
}
