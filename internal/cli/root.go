// Package cli implements the aqkg command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urbanair/aqkg/internal/config"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/logger/console"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrValidationFailed is returned by the validate command when the fragment
// has unresolved relation members. The report has already been printed.
var ErrValidationFailed = errors.New("validation failed")

// state is shared by all commands of one invocation.
type state struct {
	configFile string
	envFiles   []string
	cfg        *config.Config
}

// flagKeys maps configuration keys to the flag names that may override
// them on any command.
var flagKeys = map[string]string{
	"debug":              "debug",
	"match_threshold":    "threshold",
	"graph_backend":      "backend",
	"ontology_path":      "ontology",
	"hints_path":         "hints",
	"extract_structured": "structured",
	"port":               "port",
}

// NewRootCmd builds the aqkg command tree.
func NewRootCmd() *cobra.Command {
	s := &state{}

	cmd := &cobra.Command{
		Use:   "aqkg",
		Short: "Urban air quality knowledge graph",
		Long: `aqkg extracts air quality knowledge from text with a language model,
validates and merges knowledge fragments, loads them into a graph database
and answers questions from the graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&s.configFile, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringSliceVar(&s.envFiles, "env-file", nil, "env files to load (default .env)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("backend", "", "graph backend (neo4j, postgres, memory)")

	cmd.AddCommand(
		newExtractCmd(s),
		newValidateCmd(s),
		newMergeCmd(s),
		newImportCmd(s),
		newEmbedCmd(s),
		newSearchCmd(s),
		newAskCmd(s),
		newExportCmd(s),
		newSchemaCmd(s),
		newServeCmd(s),
		newWorkerCmd(s),
	)
	return cmd
}

func (s *state) load(cmd *cobra.Command) error {
	flags := make(map[string]*pflag.Flag, len(flagKeys))
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			flags[key] = f
		}
	}

	cfg, err := config.Load(config.LoadParams{
		ConfigFile: s.configFile,
		EnvFiles:   s.envFiles,
		Flags:      flags,
	})
	if err != nil {
		return err
	}
	s.cfg = cfg

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	}))
	return nil
}

// Execute runs the command line with args and returns the process exit
// code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidationFailed):
		return 1
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}
