package storage

import (
	"context"
	"errors"
	"time"

	"github.com/easternmills/millops/pkg/access"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Sample is a development sample (rug) moving through the sampling workflow.
type Sample struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Buyer      string    `json:"buyer,omitempty"`
	Department string    `json:"department"`
	Status     string    `json:"status"`
	Quality    string    `json:"quality,omitempty"`
	SizeCm     string    `json:"size_cm,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Order is a buyer order tracked by merchandising.
type Order struct {
	ID          string     `json:"id"`
	OrderNumber string     `json:"order_number"`
	Buyer       string     `json:"buyer"`
	Status      string     `json:"status"`
	Quantity    int        `json:"quantity"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Inspection is a quality inspection record (lab, compliance or final).
type Inspection struct {
	ID           string    `json:"id"`
	SampleID     string    `json:"sample_id,omitempty"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Findings     string    `json:"findings,omitempty"`
	InspectorUID string    `json:"inspector_uid"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentMeta describes a stored PDOC attachment; the blob itself lives in
// the documents backend.
type DocumentMeta struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	DocNumber   string    `json:"doc_number,omitempty"`
	Department  string    `json:"department"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRecordStore persists the dual-shape user documents the access resolver
// reads. It satisfies access.RecordStore plus the administrative update path.
type UserRecordStore interface {
	access.RecordStore

	// UpdateUserRecord replaces the stored document for a subject ID.
	UpdateUserRecord(ctx context.Context, subjectID string, record *access.StoredUserRecord) error

	// ListUserRecords returns all stored documents, for admin tooling.
	ListUserRecords(ctx context.Context) ([]*access.StoredUserRecord, error)
}

// SampleStore persists development samples.
type SampleStore interface {
	CreateSample(ctx context.Context, sample *Sample) error
	GetSample(ctx context.Context, id string) (*Sample, error)
	ListSamples(ctx context.Context, department string, limit, offset int) ([]*Sample, error)
	UpdateSample(ctx context.Context, sample *Sample) error
	DeleteSample(ctx context.Context, id string) error
}

// OrderStore persists buyer orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*Order, error)
	UpdateOrder(ctx context.Context, order *Order) error
}

// InspectionStore persists quality inspections.
type InspectionStore interface {
	CreateInspection(ctx context.Context, inspection *Inspection) error
	GetInspection(ctx context.Context, id string) (*Inspection, error)
	ListInspections(ctx context.Context, kind string, limit, offset int) ([]*Inspection, error)
	UpdateInspection(ctx context.Context, inspection *Inspection) error
}

// DocumentMetaStore persists PDOC attachment metadata.
type DocumentMetaStore interface {
	CreateDocument(ctx context.Context, doc *DocumentMeta) error
	GetDocument(ctx context.Context, id string) (*DocumentMeta, error)
	ListDocuments(ctx context.Context, department string, limit, offset int) ([]*DocumentMeta, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Config for the storage backend
type Config struct {
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
	}
}
