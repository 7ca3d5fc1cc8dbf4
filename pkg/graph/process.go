package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanair/aqkg/internal/util"
	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/loader"
	"github.com/urbanair/aqkg/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ProcessFiles extracts every file and folds the per-file fragments into one
// fragment in input order. The client's usage counters are reset at the
// start and logged once the batch is done.
func (g *GraphClient) ProcessFiles(
	ctx context.Context,
	files []loader.GraphFile,
	client ai.GraphAIClient,
) (*common.Fragment, MergeStats, error) {
	start := time.Now()
	client.ResetMetrics()
	fragments := make([]*common.Fragment, 0, len(files))
	for _, file := range files {
		f, err := g.ExtractFile(ctx, file, client)
		if err != nil {
			return nil, MergeStats{}, fmt.Errorf("failed to process file %s: %w", file.FilePath, err)
		}
		fragments = append(fragments, f)
	}

	merged, stats := MergeAll(g.threshold, fragments...)
	logger.Info("[Graph] Processed files",
		"files", len(files),
		"entities", merged.EntityCount(),
		"relations", merged.RelationCount(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	m := client.GetMetrics()
	logger.Info("[Extract] Model usage",
		"input_tokens", m.InputTokens,
		"output_tokens", m.OutputTokens,
		"total_tokens", m.TotalTokens,
		"tokens_per_second", m.TokenPerSecond,
	)
	return merged, stats, nil
}

// ExtractFile loads a file, splits it into units and extracts them.
func (g *GraphClient) ExtractFile(
	ctx context.Context,
	file loader.GraphFile,
	client ai.GraphAIClient,
) (*common.Fragment, error) {
	units, err := getUnitsFromText(ctx, file, g.tokenEncoder, g.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to extract units from input text: %w", err)
	}
	logger.Debug("[Extract] Split file into units", "file", file.FilePath, "units", len(units))

	merged, _, err := g.extractUnits(ctx, units, client)
	return merged, err
}

// ExtractText extracts knowledge from text that is already in memory.
func (g *GraphClient) ExtractText(
	ctx context.Context,
	fileID string,
	text string,
	client ai.GraphAIClient,
) (*common.Fragment, MergeStats, error) {
	units, err := transformIntoUnits(text, fileID, g.tokenEncoder, g.maxTokens)
	if err != nil {
		return nil, MergeStats{}, fmt.Errorf("failed to extract units from input text: %w", err)
	}
	return g.extractUnits(ctx, units, client)
}

// extractUnits runs the model on all units concurrently and merges the
// results afterwards in unit order, so the canonical spellings do not depend
// on which request finishes first.
func (g *GraphClient) extractUnits(
	ctx context.Context,
	units []common.Unit,
	client ai.GraphAIClient,
) (*common.Fragment, MergeStats, error) {
	results := make([]*common.Fragment, len(units))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelAiRequests)
	for i, unit := range units {
		eg.Go(func() error {
			f, err := util.RetryWithContext(gCtx, g.maxRetries, func(ctx context.Context) (*common.Fragment, error) {
				return g.extractFromUnit(ctx, unit, client)
			})
			if err != nil {
				return fmt.Errorf("failed to extract knowledge from unit %d: %w", i, err)
			}
			logger.Debug("[Extract] Unit done",
				"unit", unit.ID,
				"entities", f.EntityCount(),
				"relations", f.RelationCount(),
			)
			results[i] = f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, MergeStats{}, err
	}

	merged, stats := MergeAll(g.threshold, results...)
	logger.Debug("[Merge] Folded unit fragments",
		"units", len(units),
		"entities_added", stats.EntitiesAdded,
		"entities_matched", stats.EntitiesMatched,
		"relations_added", stats.RelationsAdded,
		"relations_duplicate", stats.RelationsDuplicate,
	)
	return merged, stats, nil
}
