package cli

import (
	"fmt"
	"strings"

	"github.com/urbanair/aqkg/internal/config"
	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/graph"
	"github.com/urbanair/aqkg/pkg/loader"
	"github.com/urbanair/aqkg/pkg/query"
	"github.com/urbanair/aqkg/pkg/store"

	"github.com/spf13/cobra"
)

func newExtractCmd(s *state) *cobra.Command {
	var (
		inputs   []string
		output   string
		base     string
		doImport bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a knowledge fragment from text with the language model",
		Long: `Extract splits every input into token-limited units, asks the language
model for a knowledge fragment per unit and merges the results in input
order. Inputs are local files, http(s) pages or s3://bucket/key objects.`,
		Example: `  aqkg extract --input report.txt --ontology ontology.yaml --output fragment.json
  aqkg extract --input https://example.org/air.html --base AQ.json --output AQ.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := s.cfg

			aiClient, err := config.NewAIClient(cfg)
			if err != nil {
				return err
			}
			graphClient, err := config.NewGraphClient(cfg)
			if err != nil {
				return err
			}
			fileLoader, err := config.NewFileLoader(ctx, cfg)
			if err != nil {
				return err
			}
			docs, err := newDocumentStore(ctx, s)
			if err != nil {
				return err
			}

			files := make([]loader.GraphFile, 0, len(inputs))
			for _, input := range inputs {
				files = append(files, loader.NewGraphFile(loader.NewGraphFileParams{
					FilePath:  input,
					MaxTokens: cfg.ExtractMaxTokens,
					Loader:    fileLoader,
				}))
			}

			var baseFragment *common.Fragment
			if base != "" {
				baseFragment, err = docs.LoadOrEmpty(ctx, base)
				if err != nil {
					return err
				}
			}

			var st store.GraphStorage
			if doImport {
				st, err = openStorage(ctx, s)
				if err != nil {
					return err
				}
				defer closeStorage(ctx, st)
			}

			result, stats, err := graphClient.ProcessGraph(ctx, files, baseFragment, aiClient, st)
			if err != nil {
				return err
			}
			logMergeStats(stats)

			if err := docs.Save(ctx, output, result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ JSON saved to: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "input file, URL or s3 location, repeatable")
	cmd.Flags().StringVarP(&output, "output", "o", "AQ.json", "output document")
	cmd.Flags().StringVar(&base, "base", "", "merge the extraction into this document")
	cmd.Flags().BoolVar(&doImport, "import", false, "also load the result into the graph database")
	cmd.Flags().String("ontology", "", "YAML ontology file")
	cmd.Flags().String("hints", "", "file with extra extraction instructions")
	cmd.Flags().Bool("structured", false, "use schema-constrained completions")
	cmd.Flags().Int("threshold", 0, "fuzzy match threshold 0-100")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newImportCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a fragment into the graph database",
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

			st, err := openStorage(ctx, s)
			if err != nil {
				return err
			}
			defer closeStorage(ctx, st)

			if err := graph.ImportFragment(ctx, st, f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Data successfully imported into the graph!")
			return nil
		},
	}
	return cmd
}

func newEmbedCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed every graph node for similarity search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			aiClient, err := config.NewAIClient(s.cfg)
			if err != nil {
				return err
			}
			st, err := openStorage(ctx, s)
			if err != nil {
				return err
			}
			defer closeStorage(ctx, st)

			n, err := store.EmbedNodes(ctx, st, aiClient)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No nodes found in the graph.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Embeddings generated and stored for %d nodes.\n", n)
			return nil
		},
	}
	return cmd
}

func newSearchCmd(s *state) *cobra.Command {
	var (
		label      string
		topK       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the graph nodes most similar to a query",
		Example: `  aqkg search "diesel traffic"
  aqkg search "wind" --index-label MeteorologicalFactor --top-k 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			aiClient, err := config.NewAIClient(s.cfg)
			if err != nil {
				return err
			}
			st, err := openStorage(ctx, s)
			if err != nil {
				return err
			}
			defer closeStorage(ctx, st)

			nodes, err := store.Search(ctx, st, aiClient, strings.Join(args, " "), label, topK)
			if err != nil {
				return err
			}
			return printNodes(cmd, nodes, jsonOutput)
		},
	}
	cmd.Flags().StringVar(&label, "index-label", store.DefaultSearchLabel, "node label to search")
	cmd.Flags().IntVarP(&topK, "top-k", "k", store.DefaultTopK, "number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}

func newAskCmd(s *state) *cobra.Command {
	var (
		label       string
		topK        int
		showContext bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			aiClient, err := config.NewAIClient(s.cfg)
			if err != nil {
				return err
			}
			st, err := openStorage(ctx, s)
			if err != nil {
				return err
			}
			defer closeStorage(ctx, st)

			trace := query.NewQueryTrace()
			client := query.NewQueryClient(aiClient, st, query.QueryOptions{
				Model:    s.cfg.AIDescribeModel,
				Thinking: s.cfg.AIThinking,
				Label:    label,
				TopK:     topK,
				Tracer:   trace,
			})
			answer, err := client.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showContext {
				snap := trace.Snapshot()
				fmt.Fprintf(out, "Searched: %s (%d nodes)\n", strings.Join(snap.Labels, ", "), len(snap.Nodes))
				fmt.Fprint(out, query.BuildContext(answer.Nodes))
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, answer.Answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "index-label", store.DefaultSearchLabel, "node label to retrieve context from")
	cmd.Flags().IntVarP(&topK, "top-k", "k", store.DefaultTopK, "number of context nodes")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved context")
	return cmd
}

func newSchemaCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a knowledge fragment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := marshalIndent(ai.GenerateSchema(common.Fragment{}))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func printNodes(cmd *cobra.Command, nodes []common.ScoredNode, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		if nodes == nil {
			nodes = []common.ScoredNode{}
		}
		data, err := marshalIndent(nodes)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	if len(nodes) == 0 {
		fmt.Fprintln(out, "No similar nodes found.")
		return nil
	}
	for i, n := range nodes {
		fmt.Fprintf(out, "%d. %s (%s) score: %.3f\n", i+1, n.Name, formatCategory(n.Category), n.Score)
	}
	return nil
}
