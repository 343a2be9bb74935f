package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/telemetry"
	"legaldocs-backend/internal/shared/util"
)

// Analyzer runs the structured analysis for one document. analysis.Pipeline
// is the production implementation.
type Analyzer interface {
	Analyze(ctx context.Context, documentID, extractedText string) (Processing, error)
}

// Service contains business logic for documents: admission after validation
// and the async analysis lifecycle.
type Service struct {
	Repo     Repo
	Analyzer Analyzer

	// AnalysisTimeout bounds the async analysis run end to end.
	AnalysisTimeout time.Duration
}

// Admit stores a validated document and returns it. The identifier is derived
// from content, so re-admitting identical bytes yields the same document.
func (s *Service) Admit(ctx context.Context, data []byte, filename, mimeType, extractedText string) (Document, error) {
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty content", ErrInvalidInput)
	}
	name, err := util.SanitizeFileName(filename)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	doc := Document{
		ID:               util.HashContent(data),
		OriginalFilename: name,
		MimeType:         mimeType,
		SizeBytes:        int64(len(data)),
		RawContent:       data,
		ExtractedText:    extractedText,
		Status:           StatusUploaded,
		UploadedAt:       time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	// Create is a no-op for duplicate content; return the stored state so a
	// re-upload of an analyzed document reports analyzed.
	return s.Repo.Get(ctx, doc.ID)
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, documentID string) (Document, error) {
	if documentID == "" {
		return Document{}, fmt.Errorf("%w: document id required", ErrInvalidInput)
	}
	return s.Repo.Get(ctx, documentID)
}

// List returns documents newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.Repo.List(ctx, limit, offset)
}

// StartAnalysis kicks off asynchronous analysis for an admitted document.
// Already-analyzed documents are left alone.
func (s *Service) StartAnalysis(ctx context.Context, documentID string) error {
	doc, err := s.Repo.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Processing != nil {
		return nil
	}
	if err := s.Repo.SetStatus(ctx, documentID, StatusValidating); err != nil {
		if errors.Is(err, ErrAlreadyAnalyzed) {
			return nil
		}
		return err
	}
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"document_id":       documentID,
		"status":            StatusValidating,
		"status_transition": "uploaded->validating",
	})

	go s.analyzeAsync(backgroundWithRequestID(ctx), documentID, doc.ExtractedText)
	return nil
}

func (s *Service) analyzeAsync(ctx context.Context, documentID, extractedText string) {
	defer func() {
		if r := recover(); r != nil {
			s.failDocument(ctx, documentID, fmt.Errorf("panic: %v", r))
		}
	}()

	if s.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AnalysisTimeout)
		defer cancel()
	}

	startedAt := time.Now()
	metrics.IncAnalysisStarted()

	processing, err := s.Analyzer.Analyze(ctx, documentID, extractedText)
	if err != nil {
		s.failDocument(ctx, documentID, err)
		return
	}

	if err := s.Repo.AttachProcessing(ctx, documentID, processing, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrAlreadyAnalyzed) {
			// A concurrent analysis won the write-once race; nothing to undo.
			telemetry.Warn("document.analysis_duplicate", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"document_id": documentID,
			})
			return
		}
		s.failDocument(ctx, documentID, fmt.Errorf("attach processing: %w", err))
		return
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDuration(time.Since(startedAt).Seconds())
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"document_id":       documentID,
		"status":            StatusAnalyzed,
		"status_transition": "validating->analyzed",
		"clauses":           len(processing.Clauses),
		"risks":             len(processing.Risks),
		"duration_ms":       float64(time.Since(startedAt).Microseconds()) / 1000.0,
	})
}

func (s *Service) failDocument(ctx context.Context, documentID string, cause error) {
	metrics.IncAnalysisFailed()
	telemetry.Error("document.analysis_failed", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"document_id": documentID,
		"error":       cause.Error(),
	})
	if err := s.Repo.SetStatus(context.WithoutCancel(ctx), documentID, StatusFailed); err != nil && !errors.Is(err, ErrAlreadyAnalyzed) {
		telemetry.Error("document.status_update_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": documentID,
			"error":       err.Error(),
		})
	}
}

// CreateTestDocument seeds a minimal analyzed document for diagnostics. It
// walks the exact same admission and attach path as real uploads.
func (s *Service) CreateTestDocument(ctx context.Context) (Document, error) {
	text := "RESIDENTIAL LEASE AGREEMENT\n" +
		"1. Rent. Tenant shall pay monthly rent of $1,500 due on the first day of each month.\n" +
		"2. Late Fee. A late fee of $50 applies to payments received after the fifth day.\n" +
		"3. Term. The lease term is twelve months beginning January 1."

	doc, err := s.Admit(ctx, []byte(text), "test-lease.pdf", "application/pdf", text)
	if err != nil {
		return Document{}, err
	}
	if doc.Processing != nil {
		return doc, nil
	}

	processing := Processing{
		DocumentType: "lease",
		Summary: Summary{
			Text:     "A twelve month residential lease at $1,500 per month with a $50 late fee.",
			KeyTerms: []string{"monthly rent", "late fee", "lease term"},
		},
		Clauses: []Clause{
			{ID: "c1", Title: "Rent", OriginalText: "Tenant shall pay monthly rent of $1,500 due on the first day of each month.", PlainLanguage: "You pay $1,500 rent at the start of every month."},
			{ID: "c2", Title: "Late Fee", OriginalText: "A late fee of $50 applies to payments received after the fifth day.", PlainLanguage: "Paying after the 5th costs an extra $50."},
			{ID: "c3", Title: "Term", OriginalText: "The lease term is twelve months beginning January 1.", PlainLanguage: "The lease lasts one year from January 1."},
		},
		Risks: []Risk{
			{Title: "Late fee", Severity: "medium", Rationale: "A fixed late fee applies after a five day grace period."},
		},
		Obligations: []Obligation{
			{Party: "tenant", Description: "Pay $1,500 rent by the first of each month."},
		},
		Rights: []Right{
			{Party: "tenant", Description: "Occupy the premises for the twelve month term."},
		},
		Confidence: 0.99,
	}

	if err := s.Repo.AttachProcessing(ctx, doc.ID, processing, time.Now().UTC()); err != nil {
		return Document{}, err
	}
	return s.Repo.Get(ctx, doc.ID)
}
