package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order. The user_records
// document column deliberately stores the raw JSON document so both
// historical record shapes survive verbatim; the access normalizer is the
// only component allowed to interpret them.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create user_records table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_records (
					uid VARCHAR(255) PRIMARY KEY,
					email VARCHAR(255),
					document TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
				CREATE INDEX IF NOT EXISTS idx_user_records_email ON user_records(email);
			`,
		},
		{
			Version:     2,
			Description: "Create samples table",
			SQL: `
				CREATE TABLE IF NOT EXISTS samples (
					id VARCHAR(36) PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					buyer VARCHAR(255),
					department VARCHAR(64) NOT NULL,
					status VARCHAR(64) NOT NULL,
					quality VARCHAR(255),
					size_cm VARCHAR(64),
					created_by VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_samples_department ON samples(department);
				CREATE INDEX IF NOT EXISTS idx_samples_status ON samples(status);
			`,
		},
		{
			Version:     3,
			Description: "Create orders table",
			SQL: `
				CREATE TABLE IF NOT EXISTS orders (
					id VARCHAR(36) PRIMARY KEY,
					order_number VARCHAR(64) NOT NULL UNIQUE,
					buyer VARCHAR(255) NOT NULL,
					status VARCHAR(64) NOT NULL,
					quantity INTEGER NOT NULL DEFAULT 0,
					due_date TIMESTAMP,
					created_by VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer);
			`,
		},
		{
			Version:     4,
			Description: "Create inspections table",
			SQL: `
				CREATE TABLE IF NOT EXISTS inspections (
					id VARCHAR(36) PRIMARY KEY,
					sample_id VARCHAR(36),
					kind VARCHAR(32) NOT NULL,
					status VARCHAR(64) NOT NULL,
					findings TEXT,
					inspector_uid VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_inspections_kind ON inspections(kind);
				CREATE INDEX IF NOT EXISTS idx_inspections_sample_id ON inspections(sample_id);
			`,
		},
		{
			Version:     5,
			Description: "Create documents table",
			SQL: `
				CREATE TABLE IF NOT EXISTS documents (
					id VARCHAR(36) PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					doc_number VARCHAR(64),
					department VARCHAR(64) NOT NULL,
					storage_key VARCHAR(512) NOT NULL,
					content_type VARCHAR(128) NOT NULL,
					size_bytes BIGINT NOT NULL DEFAULT 0,
					uploaded_by VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_documents_department ON documents(department);
			`,
		},
		{
			Version:     6,
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id VARCHAR(36) PRIMARY KEY,
					subject_id VARCHAR(255),
					email VARCHAR(255),
					action VARCHAR(64) NOT NULL,
					resource VARCHAR(255),
					detail TEXT,
					created_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_audit_events_subject_id ON audit_events(subject_id);
				CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
			`,
		},
	}
}

// RunMigrations applies all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, migration := range GetMigrations() {
		var count int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = $1`,
			migration.Version,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", migration.Version, err)
		}
		if count > 0 {
			continue
		}

		if _, err := db.ExecContext(ctx, migration.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			migration.Version, migration.Description,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}
	return nil
}
