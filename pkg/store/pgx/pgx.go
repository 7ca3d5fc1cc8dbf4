package pgx

import (
	"context"
	"fmt"

	"github.com/urbanair/aqkg/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

var _ store.GraphStorage = (*GraphDBStorage)(nil)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStorage on PostgreSQL. Nodes and
// edges live in the kg_nodes and kg_edges tables; embeddings are pgvector
// columns searched by cosine distance.
type GraphDBStorage struct {
	conn  pgxIConn
	close func()
}

// NewGraphDBStorageParams defines the connection parameters.
type NewGraphDBStorageParams struct {
	DatabaseURL string
	// SkipMigrations leaves the schema untouched. The migrations are
	// idempotent, so this is only useful when the role lacks DDL rights.
	SkipMigrations bool
}

// NewGraphDBStorage migrates the schema and opens a connection pool with
// the pgvector types registered on every connection.
func NewGraphDBStorage(ctx context.Context, params NewGraphDBStorageParams) (*GraphDBStorage, error) {
	if params.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if !params.SkipMigrations {
		if err := Migrate(params.DatabaseURL); err != nil {
			return nil, err
		}
	}

	cfg, err := pgxpool.ParseConfig(params.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &GraphDBStorage{conn: pool, close: pool.Close}, nil
}

// Close closes the pool if the storage opened it.
func (s *GraphDBStorage) Close(context.Context) error {
	if s.close != nil {
		s.close()
		s.close = nil
	}
	return nil
}
