package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"legaldocs-backend/internal/ai"
)

type fakeStructurer struct {
	calls atomic.Int64
	outs  []ai.Structure
	errs  []error
}

func (f *fakeStructurer) next() (ai.Structure, error) {
	n := int(f.calls.Add(1)) - 1
	var out ai.Structure
	var err error
	if n < len(f.outs) {
		out = f.outs[n]
	}
	if n < len(f.errs) {
		err = f.errs[n]
	}
	return out, err
}

func (f *fakeStructurer) ExtractStructure(ctx context.Context, content []byte, mimeType string) (ai.Structure, error) {
	return f.next()
}

func (f *fakeStructurer) ExtractStructureFromText(ctx context.Context, text string) (ai.Structure, error) {
	return f.next()
}

type fakeCompleter struct {
	calls atomic.Int64
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, grounding string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

var leaseStructure = ai.Structure{
	DocumentType: "lease",
	Summary:      "A twelve month lease.",
	KeyTerms:     []string{"rent"},
	Clauses: []ai.Clause{
		{Title: "Rent", OriginalText: "Tenant pays rent.", PlainLanguage: "You pay rent."},
		{Title: "Term", OriginalText: "Twelve months.", PlainLanguage: "One year."},
	},
	Risks:      []ai.Risk{{Title: "Late fee", Severity: "Medium", Rationale: "Fee after day five."}},
	Confidence: 0.87,
}

func TestAnalyzeUsesStructurer(t *testing.T) {
	structurer := &fakeStructurer{outs: []ai.Structure{leaseStructure}}
	p := &Pipeline{Structurer: structurer}

	got, err := p.Analyze(context.Background(), "doc1", "lease text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.DocumentType != "lease" || got.Confidence != 0.87 {
		t.Fatalf("unexpected processing: %+v", got)
	}
	if len(got.Clauses) != 2 || got.Clauses[0].ID != "c1" || got.Clauses[1].ID != "c2" {
		t.Fatalf("expected sequential clause ids, got %+v", got.Clauses)
	}
	if got.Risks[0].Severity != "medium" {
		t.Fatalf("expected normalized severity, got %q", got.Risks[0].Severity)
	}
	if got.Obligations == nil || got.Rights == nil {
		t.Fatal("expected non-nil slices")
	}
}

func TestAnalyzeRetriesTransientStructurerFailureOnce(t *testing.T) {
	structurer := &fakeStructurer{
		errs: []error{errors.New("connection reset by peer"), nil},
		outs: []ai.Structure{{}, leaseStructure},
	}
	p := &Pipeline{Structurer: structurer}

	got, err := p.Analyze(context.Background(), "doc1", "lease text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if structurer.calls.Load() != 2 {
		t.Fatalf("expected exactly 2 structurer calls, got %d", structurer.calls.Load())
	}
	if got.DocumentType != "lease" {
		t.Fatalf("unexpected processing: %+v", got)
	}
}

func TestAnalyzeDoesNotRetryCredentialFailure(t *testing.T) {
	credErr := ai.NewStatusError("docai", 401, "invalid credentials")
	structurer := &fakeStructurer{errs: []error{credErr, nil}, outs: []ai.Structure{{}, leaseStructure}}
	p := &Pipeline{Structurer: structurer}

	_, err := p.Analyze(context.Background(), "doc1", "lease text")
	if !errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("expected ErrAnalysisUnavailable, got %v", err)
	}
	if structurer.calls.Load() != 1 {
		t.Fatalf("credential failures must not retry, got %d calls", structurer.calls.Load())
	}
}

func TestAnalyzeFallsBackToCompleter(t *testing.T) {
	structurer := &fakeStructurer{errs: []error{ai.NewStatusError("docai", 403, "denied")}}
	completer := &fakeCompleter{reply: `{"documentType":"nda","summary":"Mutual NDA.","clauses":[{"title":"Confidentiality","originalText":"Keep it secret.","plainLanguage":"Do not share."}],"confidence":1.4}`}
	p := &Pipeline{Structurer: structurer, Completer: completer}

	got, err := p.Analyze(context.Background(), "doc1", "nda text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.DocumentType != "nda" {
		t.Fatalf("expected completer fallback result, got %+v", got)
	}
	if got.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %f", got.Confidence)
	}
	if completer.calls.Load() != 1 {
		t.Fatalf("expected one completer call, got %d", completer.calls.Load())
	}
}

func TestAnalyzeFailsWhenAllBackendsFail(t *testing.T) {
	structurer := &fakeStructurer{errs: []error{ai.NewStatusError("docai", 403, "denied")}}
	completer := &fakeCompleter{err: ai.NewStatusError("gemini", 429, "quota")}
	p := &Pipeline{Structurer: structurer, Completer: completer}

	_, err := p.Analyze(context.Background(), "doc1", "text")
	if !errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("expected ErrAnalysisUnavailable, got %v", err)
	}
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	p := &Pipeline{Structurer: &fakeStructurer{}}
	if _, err := p.Analyze(context.Background(), "doc1", "   "); !errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("expected ErrAnalysisUnavailable, got %v", err)
	}
}

func TestAnalyzeKeepsProvidedClauseIDs(t *testing.T) {
	s := leaseStructure
	s.Clauses = []ai.Clause{{ID: "rent-1", Title: "Rent"}, {Title: "Term"}}
	structurer := &fakeStructurer{outs: []ai.Structure{s}}
	p := &Pipeline{Structurer: structurer}

	got, err := p.Analyze(context.Background(), "doc1", "lease text")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Clauses[0].ID != "rent-1" || got.Clauses[1].ID != "c2" {
		t.Fatalf("unexpected clause ids: %+v", got.Clauses)
	}
}
