package cli

import (
	"fmt"
	"strings"

	"github.com/urbanair/aqkg/pkg/graph"

	"github.com/spf13/cobra"
)

func newValidateCmd(s *state) *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that every relation member names a defined entity",
		Long: `Validate decodes the document and reports every relation member that
does not name a defined entity. All nine top-level keys must be present
unless --lenient is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := newDocumentStore(ctx, s)
			if err != nil {
				return err
			}

			data, err := docs.ReadBytes(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			f, err := decodeFragment(data, !lenient)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", args[0], err)
			}

			issues := graph.Validate(f)
			fmt.Fprint(cmd.OutOrStdout(), graph.ValidationReport(issues))
			if len(issues) > 0 {
				return ErrValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "treat missing top-level keys as empty")
	return cmd
}

func newMergeCmd(s *state) *cobra.Command {
	var (
		base     string
		incoming []string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge knowledge fragments into a base document",
		Long: `Merge folds each incoming fragment into the base document in the order
given. Entities whose names are close to an existing entity of the same
category are dropped in favour of the existing spelling, and relations are
rewritten to the canonical names. A missing base document starts empty.`,
		Example: `  aqkg merge --base AQ.json --incoming new.json
  aqkg merge --base AQ.json --incoming a.json --incoming b.json --output merged.json --threshold 90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := newDocumentStore(ctx, s)
			if err != nil {
				return err
			}

			merged, err := docs.LoadOrEmpty(ctx, base)
			if err != nil {
				return err
			}
			var stats graph.MergeStats
			for _, location := range incoming {
				f, err := docs.Load(ctx, location)
				if err != nil {
					return err
				}
				stats.Add(graph.Merge(merged, f, s.cfg.MatchThreshold))
			}

			if output == "" {
				output = base
			}
			if err := docs.Save(ctx, output, merged); err != nil {
				return err
			}
			logMergeStats(stats)
			fmt.Fprintf(cmd.OutOrStdout(), "✅ JSON files merged successfully into: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "AQ.json", "base document")
	cmd.Flags().StringSliceVar(&incoming, "incoming", nil, "fragment to merge, repeatable")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output document (default the base)")
	cmd.Flags().Int("threshold", 0, "fuzzy match threshold 0-100")
	_ = cmd.MarkFlagRequired("incoming")
	return cmd
}

func newExportCmd(s *state) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the vis-network graph document of a fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := newDocumentStore(ctx, s)
			if err != nil {
				return err
			}
			f, err := docs.Load(ctx, args[0])
			if err != nil {
				return err
			}

			data, err := marshalIndent(graph.ExportVis(f))
			if err != nil {
				return err
			}
			if err := docs.WriteBytes(ctx, output, data); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ JSON saved to: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "AQgraph.json", "output file")
	return cmd
}

func formatCategory(category string) string {
	if strings.TrimSpace(category) == "" {
		return "uncategorized"
	}
	return category
}
