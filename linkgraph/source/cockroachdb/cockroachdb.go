package cockroachdb

import (
	"context"
	"database/sql"
	"strings"

	"Rank_Engine/linkgraph/graph"

	// Register the postgres driver used to talk to CockroachDB.
	_ "github.com/lib/pq"
	"golang.org/x/xerrors"
)

var edgeListQuery = `SELECT src.url, dst.url FROM edges
JOIN links AS src ON edges.src = src.id
JOIN links AS dst ON edges.dst = dst.id
ORDER BY edges.src, edges.dst`

// EdgeSource reads the edge list of a link graph stored in CockroachDB (or
// any postgres-compatible database) using the links/edges schema.
type EdgeSource struct {
	db *sql.DB
}

// NewEdgeSource opens a connection to the database at dsn and verifies that
// it is reachable.
func NewEdgeSource(dsn string) (*EdgeSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerrors.Errorf("edge source: %v: %w", err, graph.ErrSourceUnavailable)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("edge source: %v: %w", err, graph.ErrSourceUnavailable)
	}
	return &EdgeSource{db: db}, nil
}

// IsDSN returns true if target looks like a postgres connection string.
func IsDSN(target string) bool {
	return strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://")
}

// Records returns an iterator over every edge in the graph.
func (s *EdgeSource) Records(ctx context.Context) (graph.RecordIterator, error) {
	rows, err := s.db.QueryContext(ctx, edgeListQuery)
	if err != nil {
		return nil, xerrors.Errorf("edges: %v: %w", err, graph.ErrSourceUnavailable)
	}
	return &recordIterator{rows: rows}, nil
}

// Close terminates the connection to the database.
func (s *EdgeSource) Close() error {
	return s.db.Close()
}
