// Package audit records security-relevant events: sign-ins, provisioning,
// role changes and access denials. Events are append-only and pruned by the
// maintenance job after the retention window.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened.
type Action string

const (
	ActionSignIn          Action = "auth.sign_in"
	ActionSignInFailed    Action = "auth.sign_in_failed"
	ActionSignOut         Action = "auth.sign_out"
	ActionUserProvisioned Action = "user.provisioned"
	ActionRoleChanged     Action = "user.role_changed"
	ActionRecordUpdated   Action = "user.record_updated"
	ActionAccessDenied    Action = "access.denied"
	ActionDocumentUpload  Action = "document.upload"
	ActionDocumentDelete  Action = "document.delete"
)

// Event is a single audit trail entry.
type Event struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Action    Action    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder writes events to the audit_events table.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a database-backed audit recorder. The table is created
// by the storage migrations.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends an event. ID and CreatedAt are assigned here.
func (r *Recorder) Record(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, subject_id, email, action, resource, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.SubjectID, event.Email, event.Action, event.Resource, event.Detail, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// List returns recent events for a subject, newest first. An empty subjectID
// returns events for all subjects.
func (r *Recorder) List(ctx context.Context, subjectID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, subject_id, email, action, resource, detail, created_at
		FROM audit_events`
	args := []interface{}{}
	if subjectID != "" {
		query += ` WHERE subject_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, subjectID, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(&event.ID, &event.SubjectID, &event.Email, &event.Action,
			&event.Resource, &event.Detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Prune deletes events older than the retention window and returns how many
// were removed.
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", err)
	}
	return result.RowsAffected()
}
