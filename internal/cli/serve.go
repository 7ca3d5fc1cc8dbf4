package cli

import (
	"github.com/urbanair/aqkg/internal/config"
	"github.com/urbanair/aqkg/internal/queue"
	"github.com/urbanair/aqkg/internal/server"
	mid "github.com/urbanair/aqkg/internal/server/middleware"
	"github.com/urbanair/aqkg/pkg/logger"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newServeCmd(s *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve runs the HTTP API. Fragment routes always work; graph routes need
a reachable graph backend and the merge job route needs RabbitMQ. Missing
services are logged and their routes answer 503.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := s.cfg

			app := &mid.App{
				Threshold:    cfg.MatchThreshold,
				AskModel:     cfg.AIDescribeModel,
				Thinking:     cfg.AIThinking,
				MasterAPIKey: cfg.MasterAPIKey,
			}

			aiClient, err := config.NewAIClient(cfg)
			if err != nil {
				return err
			}
			app.AiClient = aiClient

			st, err := config.NewGraphStorage(ctx, cfg)
			if err != nil {
				logger.Warn("[Server] Graph storage unavailable, graph routes disabled", "err", err)
			} else {
				app.Storage = st
				defer closeStorage(ctx, st)
			}

			conn, err := queue.Dial(cfg.RabbitMQURL())
			if err != nil {
				logger.Warn("[Server] RabbitMQ unavailable, job routes disabled", "err", err)
			} else {
				defer conn.Close()
				ch, err := conn.Channel()
				if err != nil {
					return err
				}
				defer ch.Close()
				if err := queue.SetupQueues(ch, []string{queue.MergeQueue}); err != nil {
					return err
				}
				app.Queue = ch
			}

			if app.MasterAPIKey == "" {
				logger.Warn("[Server] MASTER_API_KEY is not set, the API is open")
			}
			return server.Run(ctx, server.New(app), cfg.Port)
		},
	}
	cmd.Flags().String("port", "", "listen port")
	return cmd
}

func newWorkerCmd(s *state) *cobra.Command {
	var withImport bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume merge jobs from RabbitMQ",
		Long: `Worker consumes merge_queue one message at a time. Failed jobs are
retried through merge_queue_retry and moved to merge_queue_dlq after ten
attempts. With DATABASE_URL set, workers take a Postgres lease on the base
document so that several workers can share the queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := s.cfg

			docs, err := config.NewDocumentStore(ctx, cfg)
			if err != nil {
				return err
			}
			params := queue.NewMergeHandlerParams{
				Documents: docs,
				Threshold: lo.ToPtr(cfg.MatchThreshold),
			}
			if withImport {
				st, err := config.NewGraphStorage(ctx, cfg)
				if err != nil {
					return err
				}
				defer closeStorage(ctx, st)
				params.Storage = st
			}

			locker, closeLocker, err := config.NewLocker(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeLocker()
			if locker != nil {
				params.Locker = locker
			}

			conn, err := queue.Dial(cfg.RabbitMQURL())
			if err != nil {
				return err
			}
			defer conn.Close()

			handler := queue.NewMergeHandler(params)
			return queue.Consume(ctx, conn, queue.MergeQueue, handler.Handle)
		},
	}
	cmd.Flags().BoolVar(&withImport, "import", false, "connect to the graph backend for jobs that request an import")
	return cmd
}
