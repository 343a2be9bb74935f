package validation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"legaldocs-backend/internal/ai"
)

type countingCompleter struct {
	calls atomic.Int64
	reply string
	err   error
}

func (c *countingCompleter) Complete(ctx context.Context, prompt, grounding string) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type countingStructurer struct {
	calls atomic.Int64
	out   ai.Structure
	err   error
}

func (s *countingStructurer) ExtractStructure(ctx context.Context, content []byte, mimeType string) (ai.Structure, error) {
	s.calls.Add(1)
	if s.err != nil {
		return ai.Structure{}, s.err
	}
	return s.out, nil
}

func (s *countingStructurer) ExtractStructureFromText(ctx context.Context, text string) (ai.Structure, error) {
	s.calls.Add(1)
	if s.err != nil {
		return ai.Structure{}, s.err
	}
	return s.out, nil
}

const leaseText = `RESIDENTIAL LEASE AGREEMENT

This agreement is made between the landlord and the tenant. The parties
agree to the following terms and conditions. The tenant shall pay rent
monthly. Termination of this lease requires thirty days notice. Liability
for damages rests with the responsible party under the governing law.`

func TestValidateRejectsEmptyFileWithoutExternalCalls(t *testing.T) {
	completer := &countingCompleter{}
	structurer := &countingStructurer{}
	p := &Pipeline{Structurer: structurer, Completer: completer, MaxBytes: 1024}

	_, err := p.Validate(context.Background(), nil, "a.pdf", "application/pdf")
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if completer.calls.Load() != 0 || structurer.calls.Load() != 0 {
		t.Fatalf("expected no external calls, got completer=%d structurer=%d",
			completer.calls.Load(), structurer.calls.Load())
	}
}

func TestValidateRejectsOversizedFileWithoutExternalCalls(t *testing.T) {
	completer := &countingCompleter{}
	p := &Pipeline{Completer: completer, MaxBytes: 10}

	_, err := p.Validate(context.Background(), bytes.Repeat([]byte("a"), 11), "a.pdf", "application/pdf")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if completer.calls.Load() != 0 {
		t.Fatalf("expected no external calls, got %d", completer.calls.Load())
	}
}

func TestValidateRejectsUnsupportedFormat(t *testing.T) {
	p := &Pipeline{MaxBytes: 1 << 20}

	_, err := p.Validate(context.Background(), []byte("data"), "tune.mp3", "audio/mpeg")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestValidateAcceptsByExtensionWhenMimeIsGeneric(t *testing.T) {
	p := &Pipeline{MaxBytes: 1 << 20, ConfidenceThreshold: 0.1}

	res, err := p.Validate(context.Background(), []byte(leaseText), "lease.pdf", "application/octet-stream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsLegal {
		t.Fatalf("expected heuristic to classify lease text as legal: %+v", res)
	}
}

func TestValidateUsesCompleterClassification(t *testing.T) {
	completer := &countingCompleter{reply: `{"isLegal": true, "documentType": "Lease", "confidence": 0.92}`}
	p := &Pipeline{Completer: completer, MaxBytes: 1 << 20, ConfidenceThreshold: 0.6}

	res, err := p.Validate(context.Background(), []byte(leaseText), "lease.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsValid || !res.IsLegal {
		t.Fatalf("expected valid legal result, got %+v", res)
	}
	if res.DocumentType != "lease" {
		t.Fatalf("expected lowercased document type, got %q", res.DocumentType)
	}
	if res.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %f", res.Confidence)
	}
}

func TestValidateRejectsConfidentNonLegalVerdict(t *testing.T) {
	completer := &countingCompleter{reply: `{"isLegal": false, "documentType": "recipe", "confidence": 0.95}`}
	p := &Pipeline{Completer: completer, MaxBytes: 1 << 20, ConfidenceThreshold: 0.6}

	res, err := p.Validate(context.Background(), []byte(leaseText), "recipe.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsValid {
		t.Fatalf("confident non-legal verdict must not pass validation: %+v", res)
	}
	if res.IsLegal {
		t.Fatalf("expected IsLegal=false, got %+v", res)
	}
}

func TestValidateClampsCompleterConfidence(t *testing.T) {
	completer := &countingCompleter{reply: `{"isLegal": true, "documentType": "lease", "confidence": 4.2}`}
	p := &Pipeline{Completer: completer, MaxBytes: 1 << 20}

	res, err := p.Validate(context.Background(), []byte(leaseText), "lease.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %f", res.Confidence)
	}
}

func TestValidateFallsBackToHeuristicWhenCompleterFails(t *testing.T) {
	completer := &countingCompleter{err: errors.New("quota exceeded")}
	p := &Pipeline{Completer: completer, MaxBytes: 1 << 20, ConfidenceThreshold: 0.3}

	res, err := p.Validate(context.Background(), []byte(leaseText), "lease.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsLegal {
		t.Fatalf("expected heuristic fallback to mark lease as legal, got %+v", res)
	}
	if res.DocumentType != "lease" {
		t.Fatalf("expected heuristic lease type, got %q", res.DocumentType)
	}
}

func TestValidateParsesFencedJSON(t *testing.T) {
	completer := &countingCompleter{reply: "```json\n{\"isLegal\": true, \"documentType\": \"nda\", \"confidence\": 0.8}\n```"}
	p := &Pipeline{Completer: completer, MaxBytes: 1 << 20}

	res, err := p.Validate(context.Background(), []byte(leaseText), "nda.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DocumentType != "nda" {
		t.Fatalf("expected nda, got %q", res.DocumentType)
	}
}

func TestHeuristicClassifyRejectsNonLegalText(t *testing.T) {
	isLegal, docType, _ := heuristicClassify("a recipe for banana bread with flour and sugar")
	if isLegal {
		t.Fatal("expected non-legal text to be rejected")
	}
	if docType != "unknown" {
		t.Fatalf("expected unknown type, got %q", docType)
	}
}

func TestExtractTextUsesStructurerForImages(t *testing.T) {
	structurer := &countingStructurer{out: ai.Structure{Summary: "scanned lease between landlord and tenant"}}
	p := &Pipeline{Structurer: structurer, MaxBytes: 1 << 20}

	text := p.extractText(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "scan.png", "image/png")
	if !strings.Contains(text, "scanned lease") {
		t.Fatalf("expected OCR text, got %q", text)
	}
	if structurer.calls.Load() != 1 {
		t.Fatalf("expected one structurer call, got %d", structurer.calls.Load())
	}
}
