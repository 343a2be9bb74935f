package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, documentID string) (Document, error)
	List(ctx context.Context, limit, offset int) ([]Document, error)
	// AttachProcessing transitions the document to StatusAnalyzed. It fails
	// with ErrNotFound for unknown IDs and ErrAlreadyAnalyzed when processing
	// is already attached; under concurrent attaches the second writer loses.
	AttachProcessing(ctx context.Context, documentID string, p Processing, analyzedAt time.Time) error
	SetStatus(ctx context.Context, documentID, status string) error
}
