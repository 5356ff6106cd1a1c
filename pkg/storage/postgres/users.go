package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/easternmills/millops/pkg/access"
)

// UserRecordStore persists user documents. The document column holds the raw
// JSON of either historical shape; only the access normalizer interprets it.
type UserRecordStore struct {
	db *sql.DB
}

// FetchUserRecord looks a document up by subject ID.
func (s *UserRecordStore) FetchUserRecord(ctx context.Context, subjectID string) (*access.StoredUserRecord, error) {
	return s.fetch(ctx, `SELECT document FROM user_records WHERE uid = $1`, subjectID)
}

// FetchUserRecordByEmail is the secondary lookup path for records created
// under a different key scheme.
func (s *UserRecordStore) FetchUserRecordByEmail(ctx context.Context, email string) (*access.StoredUserRecord, error) {
	return s.fetch(ctx, `SELECT document FROM user_records WHERE email = $1`, email)
}

func (s *UserRecordStore) fetch(ctx context.Context, query, arg string) (*access.StoredUserRecord, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&doc)
	if err == sql.ErrNoRows {
		// A miss is not an error at this boundary; the resolver treats nil
		// as "derive and provision".
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch user record: %w", err)
	}

	var record access.StoredUserRecord
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}
	return &record, nil
}

// CreateUserRecord stores a new document keyed by its UID.
func (s *UserRecordStore) CreateUserRecord(ctx context.Context, record *access.StoredUserRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode user record: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_records (uid, email, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, record.UID, record.Email, doc, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user record: %w", err)
	}
	return nil
}

// UpdateUserRecord replaces the stored document for a subject ID. This is
// the administrative path that assigns department, tabs and permissions.
func (s *UserRecordStore) UpdateUserRecord(ctx context.Context, subjectID string, record *access.StoredUserRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode user record: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE user_records SET email = $1, document = $2, updated_at = $3 WHERE uid = $4
	`, record.Email, doc, time.Now().UTC(), subjectID)
	if err != nil {
		return fmt.Errorf("failed to update user record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user record %s does not exist", subjectID)
	}
	return nil
}

// ListUserRecords returns every stored document, for admin tooling.
func (s *UserRecordStore) ListUserRecords(ctx context.Context) ([]*access.StoredUserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM user_records ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}
	defer rows.Close()

	var records []*access.StoredUserRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan user record: %w", err)
		}
		var record access.StoredUserRecord
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("failed to decode user record: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
