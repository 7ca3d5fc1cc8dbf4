package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urbanair/aqkg/internal/storage"
	"github.com/urbanair/aqkg/pkg/ai"
	"github.com/urbanair/aqkg/pkg/ai/ollama"
	"github.com/urbanair/aqkg/pkg/ai/openai"
	"github.com/urbanair/aqkg/pkg/graph"
	"github.com/urbanair/aqkg/pkg/leaselock"
	"github.com/urbanair/aqkg/pkg/loader"
	"github.com/urbanair/aqkg/pkg/loader/io"
	"github.com/urbanair/aqkg/pkg/loader/s3"
	"github.com/urbanair/aqkg/pkg/loader/web"
	"github.com/urbanair/aqkg/pkg/store"
	"github.com/urbanair/aqkg/pkg/store/memory"
	"github.com/urbanair/aqkg/pkg/store/neo4j"
	"github.com/urbanair/aqkg/pkg/store/pgx"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

// NewAIClient creates the model client selected by AI_ADAPTER.
func NewAIClient(cfg *Config) (ai.GraphAIClient, error) {
	switch cfg.AIAdapter {
	case "ollama":
		client, err := ollama.NewGraphOllamaClient(ollama.NewGraphOllamaClientParams{
			EmbeddingModel:        cfg.AIEmbedModel,
			EmbeddingDim:          cfg.AIEmbedDim,
			DescriptionModel:      cfg.AIDescribeModel,
			ExtractionModel:       cfg.AIExtractModel,
			TokenEncoder:          cfg.TokenEncoder,
			BaseURL:               cfg.AIChatURL,
			ApiKey:                cfg.AIChatKey,
			MaxConcurrentRequests: int64(cfg.AIParallelReq),
			TimeoutMin:            cfg.AITimeoutMin,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai", "":
		return openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
			EmbeddingModel:        cfg.AIEmbedModel,
			EmbeddingDim:          cfg.AIEmbedDim,
			DescriptionModel:      cfg.AIDescribeModel,
			ExtractionModel:       cfg.AIExtractModel,
			EmbeddingURL:          cfg.AIEmbedURL,
			EmbeddingKey:          cfg.AIEmbedKey,
			ChatURL:               cfg.AIChatURL,
			ChatKey:               cfg.AIChatKey,
			MaxConcurrentRequests: int64(cfg.AIParallelReq),
			TimeoutMin:            cfg.AITimeoutMin,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai adapter %q", cfg.AIAdapter)
	}
}

// NewGraphStorage connects to the backend selected by GRAPH_BACKEND.
func NewGraphStorage(ctx context.Context, cfg *Config) (store.GraphStorage, error) {
	switch cfg.GraphBackend {
	case "neo4j", "":
		s, err := neo4j.NewGraphNeo4jStorage(ctx, neo4j.NewGraphNeo4jStorageParams{
			URI:          cfg.Neo4jURI,
			User:         cfg.Neo4jUser,
			Password:     cfg.Neo4jPassword,
			Database:     cfg.Neo4jDatabase,
			EmbeddingDim: cfg.AIEmbedDim,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		s, err := pgx.NewGraphDBStorage(ctx, pgx.NewGraphDBStorageParams{
			DatabaseURL: cfg.DatabaseURL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.NewGraphMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.GraphBackend)
	}
}

// NewGraphClient creates the extraction client. The ontology and the hints
// file are read when their paths are set.
func NewGraphClient(cfg *Config) (*graph.GraphClient, error) {
	var ontology *ai.Ontology
	if cfg.OntologyPath != "" {
		o, err := ai.LoadOntology(cfg.OntologyPath)
		if err != nil {
			return nil, err
		}
		ontology = o
	}

	var hints string
	if cfg.HintsPath != "" {
		data, err := os.ReadFile(cfg.HintsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read hints file: %w", err)
		}
		hints = strings.TrimSpace(string(data))
	}

	return graph.NewGraphClient(graph.NewGraphClientParams{
		TokenEncoder:       cfg.TokenEncoder,
		MaxTokens:          cfg.ExtractMaxTokens,
		ParallelAiRequests: cfg.AIParallelReq,
		MaxRetries:         cfg.AIMaxRetries,
		Threshold:          lo.ToPtr(cfg.MatchThreshold),
		Model:              cfg.AIExtractModel,
		Thinking:           cfg.AIThinking,
		Ontology:           ontology,
		Hints:              hints,
		Structured:         cfg.ExtractStructured,
	})
}

// S3Enabled reports whether enough AWS settings are present to reach S3.
func (c *Config) S3Enabled() bool {
	return c.AWSBucket != "" || c.AWSEndpoint != "" || c.AWSRegion != ""
}

// NewS3Client returns nil without error when S3 is not configured.
func NewS3Client(ctx context.Context, cfg *Config) (*awss3.Client, error) {
	if !cfg.S3Enabled() {
		return nil, nil
	}
	return storage.NewS3Client(ctx, storage.NewS3ClientParams{
		Region:    cfg.AWSRegion,
		Endpoint:  cfg.AWSEndpoint,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
	})
}

// NewFileLoader creates a loader for local paths, web pages and, when S3 is
// configured, objects.
func NewFileLoader(ctx context.Context, cfg *Config) (loader.GraphFileLoader, error) {
	l := loader.SchemeLoader{
		Local: io.NewIOGraphFileLoader(),
		Web:   web.NewWebGraphLoader(),
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client != nil {
		l.S3 = s3.NewS3GraphFileLoaderWithClient(cfg.AWSBucket, client)
	}
	return l, nil
}

// NewDocumentStore creates the fragment document store.
func NewDocumentStore(ctx context.Context, cfg *Config) (*storage.DocumentStore, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return storage.NewDocumentStore(nil), nil
	}
	return storage.NewDocumentStore(client), nil
}

// NewLocker connects to DATABASE_URL for merge leases. It returns a nil
// locker without error when no database is configured. The returned close
// function releases the pool.
func NewLocker(ctx context.Context, cfg *Config) (*leaselock.Locker, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, nil
	}
	if err := pgx.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	locker := leaselock.NewLocker(pool, leaselock.Options{
		Wait:         true,
		WaitInterval: 500 * time.Millisecond,
		WaitJitter:   250 * time.Millisecond,
		HolderPrefix: "worker-",
	})
	return locker, pool.Close, nil
}
