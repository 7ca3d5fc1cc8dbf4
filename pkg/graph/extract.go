package graph

import (
	"context"
	"fmt"

	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
)

const (
	extractSchemaName        = "air_quality_knowledge"
	extractSchemaDescription = "Urban air quality entities and relations extracted from a text."
)

// extractFromUnit asks the model for the knowledge contained in one unit and
// decodes the answer into a normalized fragment.
func (g *GraphClient) extractFromUnit(
	ctx context.Context,
	unit common.Unit,
	client ai.GraphAIClient,
) (*common.Fragment, error) {
	prompt := ai.BuildExtractionPrompt(unit.Text, g.ontology, g.hints)

	opts := []ai.GenerateOption{ai.WithTemperature(0.1)}
	if g.model != "" {
		opts = append(opts, ai.WithModel(g.model))
	}
	if g.thinking != "" {
		opts = append(opts, ai.WithThinking(g.thinking))
	}

	var f common.Fragment
	if g.structured {
		err := client.GenerateCompletionWithFormat(
			ctx,
			extractSchemaName,
			extractSchemaDescription,
			prompt,
			&f,
			opts...,
		)
		if err != nil {
			return nil, err
		}
		f.Normalize()
		return &f, nil
	}

	res, err := client.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	if err := decodeExtraction(res, &f); err != nil {
		return nil, fmt.Errorf("unit %s: %w", unit.ID, err)
	}
	return &f, nil
}

// decodeExtraction reads the first JSON object of a free-form model answer.
// An answer without any object decodes to an empty fragment.
func decodeExtraction(res string, out *common.Fragment) error {
	raw := ai.ExtractJSONObject(res)
	if err := ai.UnmarshalFlexible(raw, out); err != nil {
		return fmt.Errorf("failed to decode extraction: %w", err)
	}
	out.Normalize()
	return nil
}
