package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/fuzzy"
	"github.com/urbanair/aqkg/pkg/graph"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"
)

// Documents loads and saves fragment documents by location.
type Documents interface {
	Load(ctx context.Context, location string) (*common.Fragment, error)
	LoadOrEmpty(ctx context.Context, location string) (*common.Fragment, error)
	Save(ctx context.Context, location string, f *common.Fragment) error
}

// Locker serializes work on one key across workers.
type Locker interface {
	WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// MergeHandler processes merge jobs.
type MergeHandler struct {
	docs      Documents
	storage   store.GraphStorage
	locker    Locker
	threshold int
}

// NewMergeHandlerParams configures a MergeHandler. Storage is optional and
// only used by jobs that ask for an import. With a Locker, jobs on the same
// base document run one at a time across all workers. A nil Threshold uses
// fuzzy.DefaultThreshold.
type NewMergeHandlerParams struct {
	Documents Documents
	Storage   store.GraphStorage
	Locker    Locker
	Threshold *int
}

func NewMergeHandler(params NewMergeHandlerParams) *MergeHandler {
	threshold := fuzzy.DefaultThreshold
	if params.Threshold != nil {
		threshold = *params.Threshold
	}
	return &MergeHandler{
		docs:      params.Documents,
		storage:   params.Storage,
		locker:    params.Locker,
		threshold: threshold,
	}
}

// Handle runs one merge job: load the incoming fragment and the base,
// merge, write the result and optionally import it into the graph.
func (h *MergeHandler) Handle(ctx context.Context, body []byte) (graph.MergeStats, error) {
	start := time.Now()
	msg, err := DecodeMergeMsg(body)
	if err != nil {
		return graph.MergeStats{}, err
	}

	var stats graph.MergeStats
	run := func(ctx context.Context) error {
		var err error
		stats, err = h.merge(ctx, msg)
		return err
	}
	if h.locker != nil {
		err = h.locker.WithLease(ctx, msg.Base, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return stats, err
	}

	logger.Info("[Queue] Merged fragment",
		"base", msg.Base,
		"output", msg.OutputLocation(),
		"entities_added", stats.EntitiesAdded,
		"entities_matched", stats.EntitiesMatched,
		"relations_added", stats.RelationsAdded,
		"relations_duplicate", stats.RelationsDuplicate,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats, nil
}

func (h *MergeHandler) merge(ctx context.Context, msg *MergeMsg) (graph.MergeStats, error) {
	incoming, err := msg.InlineFragment()
	if err != nil {
		return graph.MergeStats{}, fmt.Errorf("%w: inline fragment: %w", ErrInvalidMessage, err)
	}
	if incoming == nil {
		incoming, err = h.docs.Load(ctx, msg.Location)
		if err != nil {
			return graph.MergeStats{}, err
		}
	}

	base, err := h.docs.LoadOrEmpty(ctx, msg.Base)
	if err != nil {
		return graph.MergeStats{}, err
	}

	threshold := h.threshold
	if msg.Threshold != nil {
		threshold = *msg.Threshold
	}
	stats := graph.Merge(base, incoming, threshold)

	output := msg.OutputLocation()
	if err := h.docs.Save(ctx, output, base); err != nil {
		return stats, err
	}

	if msg.Import {
		if h.storage == nil {
			return stats, fmt.Errorf("import requested but no graph storage is configured")
		}
		if err := graph.ImportFragment(ctx, h.storage, base); err != nil {
			return stats, err
		}
	}

	return stats, nil
}
