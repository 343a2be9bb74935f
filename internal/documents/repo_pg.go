package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Processing is stored as jsonb; the
// write-once invariant rides on a conditional UPDATE so concurrent attaches
// resolve inside the database.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document; duplicate content-addressed IDs are a no-op.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    original_filename,
    mime_type,
    size_bytes,
    raw_content,
    extracted_text,
    status,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

	status := doc.Status
	if status == "" {
		status = StatusUploaded
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OriginalFilename,
		doc.MimeType,
		doc.SizeBytes,
		doc.RawContent,
		doc.ExtractedText,
		status,
		doc.UploadedAt,
	)
	return err
}

// Get returns a document by ID.
func (r *PGRepo) Get(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT id, original_filename, mime_type, size_bytes, raw_content, extracted_text, status, processing, uploaded_at, analyzed_at
FROM documents
WHERE id = $1`

	row := r.DB.QueryRowContext(ctx, query, documentID)
	return scanDocument(row)
}

// List returns documents newest-first, honoring limit/offset.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	const query = `
SELECT id, original_filename, mime_type, size_bytes, raw_content, extracted_text, status, processing, uploaded_at, analyzed_at
FROM documents
ORDER BY uploaded_at DESC, id
LIMIT $1 OFFSET $2`

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if out == nil {
		out = []Document{}
	}
	return out, rows.Err()
}

// AttachProcessing attaches analysis results exactly once.
func (r *PGRepo) AttachProcessing(ctx context.Context, documentID string, p Processing, analyzedAt time.Time) error {
	const query = `
UPDATE documents
SET processing = $2, status = $3, analyzed_at = $4
WHERE id = $1 AND processing IS NULL`

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal processing: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, query, documentID, payload, StatusAnalyzed, analyzedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Nothing updated: distinguish unknown ID from an already-attached row.
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, documentID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyAnalyzed
}

// SetStatus updates the lifecycle state without touching processing.
func (r *PGRepo) SetStatus(ctx context.Context, documentID, status string) error {
	const query = `
UPDATE documents
SET status = $2
WHERE id = $1 AND processing IS NULL`

	res, err := r.DB.ExecContext(ctx, query, documentID, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, documentID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyAnalyzed
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc        Document
		processing []byte
		analyzedAt sql.NullTime
	)
	err := row.Scan(
		&doc.ID,
		&doc.OriginalFilename,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.RawContent,
		&doc.ExtractedText,
		&doc.Status,
		&processing,
		&doc.UploadedAt,
		&analyzedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if len(processing) > 0 {
		var p Processing
		if err := json.Unmarshal(processing, &p); err != nil {
			return Document{}, fmt.Errorf("unmarshal processing: %w", err)
		}
		doc.Processing = &p
	}
	if analyzedAt.Valid {
		at := analyzedAt.Time
		doc.AnalyzedAt = &at
	}
	return doc, nil
}
