package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/documents"
)

type fakeCompleter struct {
	calls     atomic.Int64
	reply     string
	err       error
	grounding string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, grounding string) (string, error) {
	f.calls.Add(1)
	f.grounding = grounding
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func analyzedLease(t *testing.T, repo documents.Repo) documents.Document {
	t.Helper()
	err := repo.Create(context.Background(), documents.Document{
		ID:               "lease1",
		OriginalFilename: "lease.pdf",
		MimeType:         "application/pdf",
		Status:           documents.StatusUploaded,
		UploadedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p := documents.Processing{
		DocumentType: "lease",
		Summary:      documents.Summary{Text: "A lease."},
		Clauses: []documents.Clause{
			{ID: "c1", Title: "Rent", OriginalText: "Tenant shall pay monthly rent of $1,500."},
			{ID: "c2", Title: "Late Fee", OriginalText: "A late fee of $50 applies after the fifth day."},
			{ID: "c3", Title: "Term", OriginalText: "The lease term is twelve months."},
		},
		Confidence: 0.9,
	}
	if err := repo.AttachProcessing(context.Background(), "lease1", p, time.Now().UTC()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	doc, err := repo.Get(context.Background(), "lease1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return doc
}

func TestAskRejectsEmptyQueryWithoutExternalCall(t *testing.T) {
	repo := documents.NewMemoryRepo()
	analyzedLease(t, repo)
	completer := &fakeCompleter{}
	e := &Engine{Repo: repo, Completer: completer}

	_, err := e.Ask(context.Background(), "lease1", "   ")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if completer.calls.Load() != 0 {
		t.Fatalf("expected no completion calls, got %d", completer.calls.Load())
	}
}

func TestAskRejectsUnanalyzedDocumentWithoutExternalCall(t *testing.T) {
	repo := documents.NewMemoryRepo()
	if err := repo.Create(context.Background(), documents.Document{ID: "raw1", Status: documents.StatusValidating, UploadedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	completer := &fakeCompleter{}
	e := &Engine{Repo: repo, Completer: completer}

	_, err := e.Ask(context.Background(), "raw1", "what is the rent?")
	if !errors.Is(err, ErrDocumentNotReady) {
		t.Fatalf("expected ErrDocumentNotReady, got %v", err)
	}
	if completer.calls.Load() != 0 {
		t.Fatalf("expected no completion calls, got %d", completer.calls.Load())
	}
}

func TestAskUnknownDocument(t *testing.T) {
	e := &Engine{Repo: documents.NewMemoryRepo(), Completer: &fakeCompleter{}}
	if _, err := e.Ask(context.Background(), "ghost", "question"); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAskReturnsValidatedCitations(t *testing.T) {
	repo := documents.NewMemoryRepo()
	analyzedLease(t, repo)
	completer := &fakeCompleter{reply: `{"answer": "Rent is $1,500 per month.", "confidence": 0.9, "sources": ["c1", "c9", "c1"]}`}
	e := &Engine{Repo: repo, Completer: completer}

	ans, err := e.Ask(context.Background(), "lease1", "how much is the rent?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("expected fabricated and duplicate citations dropped, got %+v", ans.Sources)
	}
	if ans.Sources[0].ClauseID != "c1" || ans.Sources[0].Title != "Rent" {
		t.Fatalf("expected c1/Rent citation, got %+v", ans.Sources[0])
	}
}

func TestAskRanksRelevantClauseIntoGrounding(t *testing.T) {
	repo := documents.NewMemoryRepo()
	analyzedLease(t, repo)
	completer := &fakeCompleter{reply: `{"answer": "ok", "confidence": 0.5, "sources": []}`}
	e := &Engine{Repo: repo, Completer: completer, ContextMaxBytes: 200}

	if _, err := e.Ask(context.Background(), "lease1", "what late fee applies?"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(completer.grounding, "[c2]") {
		t.Fatalf("expected late fee clause first in grounding, got %q", completer.grounding)
	}
	if !strings.HasPrefix(completer.grounding, "[c2]") {
		t.Fatalf("expected most relevant clause first, got %q", completer.grounding)
	}
}

func TestAskGroundsRisksObligationsAndRights(t *testing.T) {
	repo := documents.NewMemoryRepo()
	if err := repo.Create(context.Background(), documents.Document{ID: "lease2", Status: documents.StatusUploaded, UploadedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	p := documents.Processing{
		DocumentType: "lease",
		Summary:      documents.Summary{Text: "A lease."},
		Clauses: []documents.Clause{
			{ID: "c1", Title: "Rent", OriginalText: "Tenant shall pay monthly rent of $1,500."},
		},
		Risks: []documents.Risk{
			{Title: "Automatic renewal", Severity: "high", Rationale: "The lease renews for a full year unless cancelled in writing."},
		},
		Obligations: []documents.Obligation{
			{Party: "tenant", Description: "Tenant must maintain renters insurance."},
		},
		Rights: []documents.Right{
			{Party: "tenant", Description: "Tenant may sublet with written consent."},
		},
	}
	if err := repo.AttachProcessing(context.Background(), "lease2", p, time.Now().UTC()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	completer := &fakeCompleter{reply: `{"answer": "ok", "confidence": 0.5, "sources": []}`}
	e := &Engine{Repo: repo, Completer: completer}

	if _, err := e.Ask(context.Background(), "lease2", "does the lease renew automatically?"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.HasPrefix(completer.grounding, "Risk: Automatic renewal") {
		t.Fatalf("expected matching risk ranked first, got %q", completer.grounding)
	}
	if !strings.Contains(completer.grounding, "The lease renews for a full year") {
		t.Fatalf("expected risk rationale in grounding, got %q", completer.grounding)
	}
	if !strings.Contains(completer.grounding, "Obligation (tenant)\nTenant must maintain renters insurance.") {
		t.Fatalf("expected obligation in grounding, got %q", completer.grounding)
	}
	if !strings.Contains(completer.grounding, "Right (tenant)\nTenant may sublet with written consent.") {
		t.Fatalf("expected right in grounding, got %q", completer.grounding)
	}
	// Only clauses are citable, so only the clause entry carries an id tag.
	if strings.Count(completer.grounding, "[") != 1 || !strings.Contains(completer.grounding, "[c1]") {
		t.Fatalf("expected exactly the clause to be id-tagged, got %q", completer.grounding)
	}
}

func TestAskFallsBackToPlainTextAnswer(t *testing.T) {
	repo := documents.NewMemoryRepo()
	analyzedLease(t, repo)
	completer := &fakeCompleter{reply: "The rent is $1,500 per month."}
	e := &Engine{Repo: repo, Completer: completer}

	ans, err := e.Ask(context.Background(), "lease1", "rent?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Answer != "The rent is $1,500 per month." {
		t.Fatalf("expected raw reply as answer, got %q", ans.Answer)
	}
	if len(ans.Sources) != 0 {
		t.Fatalf("expected no citations, got %+v", ans.Sources)
	}
}

func TestAskClampsConfidence(t *testing.T) {
	repo := documents.NewMemoryRepo()
	analyzedLease(t, repo)
	completer := &fakeCompleter{reply: `{"answer": "yes", "confidence": 7.5, "sources": []}`}
	e := &Engine{Repo: repo, Completer: completer}

	ans, err := e.Ask(context.Background(), "lease1", "anything?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Confidence != 1 {
		t.Fatalf("expected clamped confidence, got %f", ans.Confidence)
	}
}

func TestAskWrapsCompleterFailure(t *testing.T) {
	repo := documents.NewMemoryRepo()
	analyzedLease(t, repo)
	completer := &fakeCompleter{err: ai.NewStatusError("gemini", 429, "quota")}
	e := &Engine{Repo: repo, Completer: completer}

	_, err := e.Ask(context.Background(), "lease1", "rent?")
	if !errors.Is(err, ErrChatUnavailable) {
		t.Fatalf("expected ErrChatUnavailable, got %v", err)
	}
	if ai.KindOf(err) != ai.KindQuota {
		t.Fatalf("expected quota classification to survive wrapping, got %s", ai.KindOf(err))
	}
}
