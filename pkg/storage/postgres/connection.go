package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/easternmills/millops/pkg/storage"
)

// Store bundles all PostgreSQL-backed stores over one connection pool.
type Store struct {
	db *sql.DB

	Users       *UserRecordStore
	Samples     *SampleStore
	Orders      *OrderStore
	Inspections *InspectionStore
	Documents   *DocumentMetaStore
}

// Connect opens the pool, verifies connectivity and runs migrations.
func Connect(ctx context.Context, config storage.Config) (*Store, error) {
	db, err := sql.Open("postgres", config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, config.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return NewStore(db), nil
}

// NewStore wraps an existing database handle. Used by tests with sqlite.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		Users:       &UserRecordStore{db: db},
		Samples:     &SampleStore{db: db},
		Orders:      &OrderStore{db: db},
		Inspections: &InspectionStore{db: db},
		Documents:   &DocumentMetaStore{db: db},
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
