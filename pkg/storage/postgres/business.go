package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/easternmills/millops/pkg/storage"
)

// SampleStore persists development samples.
type SampleStore struct {
	db *sql.DB
}

// CreateSample inserts a new sample.
func (s *SampleStore) CreateSample(ctx context.Context, sample *storage.Sample) error {
	now := time.Now().UTC()
	sample.CreatedAt = now
	sample.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (id, name, buyer, department, status, quality, size_cm, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sample.ID, sample.Name, sample.Buyer, sample.Department, sample.Status,
		sample.Quality, sample.SizeCm, sample.CreatedBy, sample.CreatedAt, sample.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sample: %w", err)
	}
	return nil
}

// GetSample fetches a sample by ID.
func (s *SampleStore) GetSample(ctx context.Context, id string) (*storage.Sample, error) {
	sample := &storage.Sample{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, buyer, department, status, quality, size_cm, created_by, created_at, updated_at
		FROM samples WHERE id = $1
	`, id).Scan(&sample.ID, &sample.Name, &sample.Buyer, &sample.Department, &sample.Status,
		&sample.Quality, &sample.SizeCm, &sample.CreatedBy, &sample.CreatedAt, &sample.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch sample: %w", err)
	}
	return sample, nil
}

// ListSamples returns samples, optionally filtered by department.
func (s *SampleStore) ListSamples(ctx context.Context, department string, limit, offset int) ([]*storage.Sample, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, name, buyer, department, status, quality, size_cm, created_by, created_at, updated_at
		FROM samples`
	args := []interface{}{}
	if department != "" {
		query += ` WHERE department = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, department, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var samples []*storage.Sample
	for rows.Next() {
		sample := &storage.Sample{}
		if err := rows.Scan(&sample.ID, &sample.Name, &sample.Buyer, &sample.Department, &sample.Status,
			&sample.Quality, &sample.SizeCm, &sample.CreatedBy, &sample.CreatedAt, &sample.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// UpdateSample updates a sample's mutable fields.
func (s *SampleStore) UpdateSample(ctx context.Context, sample *storage.Sample) error {
	sample.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE samples SET name = $1, buyer = $2, status = $3, quality = $4, size_cm = $5, updated_at = $6
		WHERE id = $7
	`, sample.Name, sample.Buyer, sample.Status, sample.Quality, sample.SizeCm, sample.UpdatedAt, sample.ID)
	if err != nil {
		return fmt.Errorf("failed to update sample: %w", err)
	}
	return requireRow(result)
}

// DeleteSample removes a sample.
func (s *SampleStore) DeleteSample(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	return requireRow(result)
}

// OrderStore persists buyer orders.
type OrderStore struct {
	db *sql.DB
}

// CreateOrder inserts a new order.
func (s *OrderStore) CreateOrder(ctx context.Context, order *storage.Order) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, buyer, status, quantity, due_date, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, order.ID, order.OrderNumber, order.Buyer, order.Status, order.Quantity,
		order.DueDate, order.CreatedBy, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetOrder fetches an order by ID.
func (s *OrderStore) GetOrder(ctx context.Context, id string) (*storage.Order, error) {
	order := &storage.Order{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, buyer, status, quantity, due_date, created_by, created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&order.ID, &order.OrderNumber, &order.Buyer, &order.Status, &order.Quantity,
		&order.DueDate, &order.CreatedBy, &order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	return order, nil
}

// ListOrders returns orders newest first.
func (s *OrderStore) ListOrders(ctx context.Context, limit, offset int) ([]*storage.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, buyer, status, quantity, due_date, created_by, created_at, updated_at
		FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*storage.Order
	for rows.Next() {
		order := &storage.Order{}
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.Buyer, &order.Status, &order.Quantity,
			&order.DueDate, &order.CreatedBy, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateOrder updates an order's mutable fields.
func (s *OrderStore) UpdateOrder(ctx context.Context, order *storage.Order) error {
	order.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET buyer = $1, status = $2, quantity = $3, due_date = $4, updated_at = $5
		WHERE id = $6
	`, order.Buyer, order.Status, order.Quantity, order.DueDate, order.UpdatedAt, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return requireRow(result)
}

// InspectionStore persists quality inspections.
type InspectionStore struct {
	db *sql.DB
}

// CreateInspection inserts a new inspection.
func (s *InspectionStore) CreateInspection(ctx context.Context, inspection *storage.Inspection) error {
	now := time.Now().UTC()
	inspection.CreatedAt = now
	inspection.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inspections (id, sample_id, kind, status, findings, inspector_uid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inspection.ID, inspection.SampleID, inspection.Kind, inspection.Status,
		inspection.Findings, inspection.InspectorUID, inspection.CreatedAt, inspection.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inspection: %w", err)
	}
	return nil
}

// GetInspection fetches an inspection by ID.
func (s *InspectionStore) GetInspection(ctx context.Context, id string) (*storage.Inspection, error) {
	inspection := &storage.Inspection{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sample_id, kind, status, findings, inspector_uid, created_at, updated_at
		FROM inspections WHERE id = $1
	`, id).Scan(&inspection.ID, &inspection.SampleID, &inspection.Kind, &inspection.Status,
		&inspection.Findings, &inspection.InspectorUID, &inspection.CreatedAt, &inspection.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch inspection: %w", err)
	}
	return inspection, nil
}

// ListInspections returns inspections, optionally filtered by kind.
func (s *InspectionStore) ListInspections(ctx context.Context, kind string, limit, offset int) ([]*storage.Inspection, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, sample_id, kind, status, findings, inspector_uid, created_at, updated_at
		FROM inspections`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, kind, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	var inspections []*storage.Inspection
	for rows.Next() {
		inspection := &storage.Inspection{}
		if err := rows.Scan(&inspection.ID, &inspection.SampleID, &inspection.Kind, &inspection.Status,
			&inspection.Findings, &inspection.InspectorUID, &inspection.CreatedAt, &inspection.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, inspection)
	}
	return inspections, rows.Err()
}

// UpdateInspection updates an inspection's mutable fields.
func (s *InspectionStore) UpdateInspection(ctx context.Context, inspection *storage.Inspection) error {
	inspection.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE inspections SET status = $1, findings = $2, updated_at = $3 WHERE id = $4
	`, inspection.Status, inspection.Findings, inspection.UpdatedAt, inspection.ID)
	if err != nil {
		return fmt.Errorf("failed to update inspection: %w", err)
	}
	return requireRow(result)
}

// DocumentMetaStore persists PDOC attachment metadata.
type DocumentMetaStore struct {
	db *sql.DB
}

// CreateDocument inserts document metadata.
func (s *DocumentMetaStore) CreateDocument(ctx context.Context, doc *storage.DocumentMeta) error {
	doc.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, doc_number, department, storage_key, content_type, size_bytes, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, doc.ID, doc.Title, doc.DocNumber, doc.Department, doc.StorageKey,
		doc.ContentType, doc.SizeBytes, doc.UploadedBy, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument fetches document metadata by ID.
func (s *DocumentMetaStore) GetDocument(ctx context.Context, id string) (*storage.DocumentMeta, error) {
	doc := &storage.DocumentMeta{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, doc_number, department, storage_key, content_type, size_bytes, uploaded_by, created_at
		FROM documents WHERE id = $1
	`, id).Scan(&doc.ID, &doc.Title, &doc.DocNumber, &doc.Department, &doc.StorageKey,
		&doc.ContentType, &doc.SizeBytes, &doc.UploadedBy, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns document metadata, optionally filtered by department.
func (s *DocumentMetaStore) ListDocuments(ctx context.Context, department string, limit, offset int) ([]*storage.DocumentMeta, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, title, doc_number, department, storage_key, content_type, size_bytes, uploaded_by, created_at
		FROM documents`
	args := []interface{}{}
	if department != "" {
		query += ` WHERE department = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, department, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*storage.DocumentMeta
	for rows.Next() {
		doc := &storage.DocumentMeta{}
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.DocNumber, &doc.Department, &doc.StorageKey,
			&doc.ContentType, &doc.SizeBytes, &doc.UploadedBy, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes document metadata.
func (s *DocumentMetaStore) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
