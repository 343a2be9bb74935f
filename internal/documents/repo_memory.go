package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo. Readers always get
// copies, so an in-flight AttachProcessing can never be observed half-written.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document. Re-admitting the same content is a no-op.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[doc.ID]; exists {
		return nil
	}
	r.data[doc.ID] = doc.clone()
	return nil
}

// Get returns a document by ID.
func (r *MemoryRepo) Get(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc.clone(), nil
}

// List returns documents newest-first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	docs := make([]Document, 0, len(r.data))
	for _, doc := range r.data {
		docs = append(docs, doc.clone())
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// AttachProcessing attaches analysis results exactly once.
func (r *MemoryRepo) AttachProcessing(ctx context.Context, documentID string, p Processing, analyzedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Processing != nil {
		return ErrAlreadyAnalyzed
	}
	attached := p.clone()
	doc.Processing = &attached
	doc.Status = StatusAnalyzed
	at := analyzedAt
	doc.AnalyzedAt = &at
	r.data[documentID] = doc
	return nil
}

// SetStatus updates the lifecycle state. It refuses to move an analyzed
// document backwards.
func (r *MemoryRepo) SetStatus(ctx context.Context, documentID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Processing != nil && status != StatusAnalyzed {
		return ErrAlreadyAnalyzed
	}
	doc.Status = status
	r.data[documentID] = doc
	return nil
}
