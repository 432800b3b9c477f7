package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"golang.org/x/sync/semaphore"

	"github.com/tinytelemetry/logsift/internal/duckdb/migrate"
	"github.com/tinytelemetry/logsift/internal/model"
)

// migrateTimeout bounds schema migration when a store is opened.
const migrateTimeout = time.Minute

// Store manages the DuckDB database holding the analysis history.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration

	// readSem bounds concurrent read queries; nil means unbounded.
	readSem *semaphore.Weighted
}

// NewStore opens or creates a DuckDB database and applies migrations.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	runner := migrate.NewRunner(db)
	if err := runner.Run(migrateCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if version, pending, err := runner.Status(migrateCtx); err == nil {
		log.Printf("duckdb: schema at version %d (%d pending)", version, pending)
	}

	qt := model.DefaultQueryTimeout
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
	}, nil
}

// SetMaxConcurrentQueries bounds the number of read queries that may run at
// once. n <= 0 removes the bound. Call before the store is shared.
func (s *Store) SetMaxConcurrentQueries(n int) {
	if n <= 0 {
		s.readSem = nil
		return
	}
	s.readSem = semaphore.NewWeighted(int64(n))
}

// beginRead takes the read lock and a read slot, returning a query context
// and a release func that undoes both.
func (s *Store) beginRead() (context.Context, func(), error) {
	ctx, cancel := s.queryCtx()
	if s.readSem != nil {
		if err := s.readSem.Acquire(ctx, 1); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("waiting for query slot: %w", err)
		}
	}
	s.mu.RLock()
	return ctx, func() {
		s.mu.RUnlock()
		if s.readSem != nil {
			s.readSem.Release(1)
		}
		cancel()
	}, nil
}

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// Path returns the database file path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
