package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/logger"
	"github.com/urbanair/aqkg/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var _ store.GraphStorage = (*GraphNeo4jStorage)(nil)

// GraphNeo4jStorage implements store.GraphStorage on a Neo4j database.
// Every node label gets a uniqueness constraint on name and a cosine vector
// index on the embedding property.
//
// A GraphNeo4jStorage should be created using NewGraphNeo4jStorage.
type GraphNeo4jStorage struct {
	driver       neo4jv5.DriverWithContext
	database     string
	embeddingDim int
}

// NewGraphNeo4jStorageParams defines the connection parameters.
//
// EmbeddingDim must match the embedding model, it sizes the vector indexes.
type NewGraphNeo4jStorageParams struct {
	URI          string
	User         string
	Password     string
	Database     string
	EmbeddingDim int
	TimeoutSec   int
	MaxPoolSize  int
}

// NewGraphNeo4jStorage connects to Neo4j, verifies connectivity and creates
// the schema if it is missing.
func NewGraphNeo4jStorage(ctx context.Context, params NewGraphNeo4jStorageParams) (*GraphNeo4jStorage, error) {
	if params.URI == "" {
		return nil, fmt.Errorf("neo4j uri is empty")
	}
	user := params.User
	if user == "" {
		user = "neo4j"
	}
	timeout := params.TimeoutSec
	if timeout <= 0 {
		timeout = 10
	}
	maxPool := params.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}
	dim := params.EmbeddingDim
	if dim <= 0 {
		dim = 768
	}

	driver, err := neo4jv5.NewDriverWithContext(
		params.URI,
		neo4jv5.BasicAuth(user, params.Password, ""),
		func(cfg *neo4jv5.Config) {
			cfg.MaxConnectionPoolSize = maxPool
			cfg.SocketConnectTimeout = time.Duration(timeout) * time.Second
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	vCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(vCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}

	s := &GraphNeo4jStorage{
		driver:       driver,
		database:     params.Database,
		embeddingDim: dim,
	}
	s.ensureSchema(ctx)
	return s, nil
}

// ensureSchema creates constraints and vector indexes. Failures are logged
// and ignored; older servers without vector indexes can still store the
// graph.
func (s *GraphNeo4jStorage) ensureSchema(ctx context.Context) {
	session := s.session(ctx, neo4jv5.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements(s.embeddingDim) {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			logger.Warn("[Neo4j] Schema init failed (continuing)", "err", err)
			continue
		}
		if _, err := res.Consume(ctx); err != nil {
			logger.Warn("[Neo4j] Schema init failed (continuing)", "err", err)
		}
	}
}

func schemaStatements(dim int) []string {
	stmts := make([]string, 0, len(common.Labels)*2)
	for _, label := range common.Labels {
		index := store.IndexName(label)
		stmts = append(stmts,
			fmt.Sprintf(
				"CREATE CONSTRAINT %s_name_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.name IS UNIQUE",
				index, label,
			),
			fmt.Sprintf(
				"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.embedding) "+
					"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
				index, label, dim,
			),
		)
	}
	return stmts
}

func (s *GraphNeo4jStorage) session(ctx context.Context, mode neo4jv5.AccessMode) neo4jv5.SessionWithContext {
	return s.driver.NewSession(ctx, neo4jv5.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// Close closes the driver.
func (s *GraphNeo4jStorage) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}
