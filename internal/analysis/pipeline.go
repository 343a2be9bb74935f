package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/shared/telemetry"
)

// ErrAnalysisUnavailable means every configured analysis backend failed.
var ErrAnalysisUnavailable = errors.New("analysis unavailable")

// Pipeline turns extracted document text into structured analysis results.
// The document structuring service is tried first; the completion model is
// the fallback when structuring is missing or fails.
type Pipeline struct {
	Structurer ai.Structurer
	Completer  ai.Completer
}

// Analyze implements documents.Analyzer.
func (p *Pipeline) Analyze(ctx context.Context, documentID, extractedText string) (documents.Processing, error) {
	if strings.TrimSpace(extractedText) == "" {
		return documents.Processing{}, fmt.Errorf("%w: no text to analyze", ErrAnalysisUnavailable)
	}

	structure, err := p.structure(ctx, documentID, extractedText)
	if err != nil {
		return documents.Processing{}, err
	}
	return toProcessing(structure, extractedText), nil
}

func (p *Pipeline) structure(ctx context.Context, documentID, text string) (ai.Structure, error) {
	var primaryErr error
	if p.Structurer != nil {
		structurer := newRetryingStructurer(p.Structurer, documentID)
		structure, err := structurer.ExtractStructureFromText(ctx, text)
		if err == nil {
			return structure, nil
		}
		primaryErr = err
		if !errors.Is(err, ai.ErrNotConfigured) {
			telemetry.Warn("analysis.structurer_failed", map[string]any{
				"document_id": documentID,
				"kind":        string(ai.KindOf(err)),
				"error":       err.Error(),
			})
		}
	}

	if p.Completer != nil {
		structure, err := p.completeStructure(ctx, text)
		if err == nil {
			return structure, nil
		}
		if !errors.Is(err, ai.ErrNotConfigured) {
			telemetry.Warn("analysis.completer_failed", map[string]any{
				"document_id": documentID,
				"kind":        string(ai.KindOf(err)),
				"error":       err.Error(),
			})
		}
		if primaryErr == nil {
			primaryErr = err
		}
	}

	if primaryErr == nil {
		primaryErr = ai.ErrNotConfigured
	}
	return ai.Structure{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, primaryErr)
}

const structurePrompt = `You are a legal analyst. Read the document below and respond with JSON only, no prose, matching this shape:
{
  "documentType": "<lease|nda|employment_contract|terms_of_service|contract|other>",
  "summary": "<plain language summary>",
  "keyTerms": ["..."],
  "clauses": [{"title": "...", "originalText": "...", "plainLanguage": "..."}],
  "risks": [{"title": "...", "severity": "low|medium|high", "rationale": "..."}],
  "obligations": [{"party": "...", "description": "..."}],
  "rights": [{"party": "...", "description": "..."}],
  "confidence": <0..1>
}`

type completionStructure struct {
	DocumentType string   `json:"documentType"`
	Summary      string   `json:"summary"`
	KeyTerms     []string `json:"keyTerms"`
	Clauses      []struct {
		Title         string `json:"title"`
		OriginalText  string `json:"originalText"`
		PlainLanguage string `json:"plainLanguage"`
	} `json:"clauses"`
	Risks []struct {
		Title     string `json:"title"`
		Severity  string `json:"severity"`
		Rationale string `json:"rationale"`
	} `json:"risks"`
	Obligations []struct {
		Party       string `json:"party"`
		Description string `json:"description"`
	} `json:"obligations"`
	Rights []struct {
		Party       string `json:"party"`
		Description string `json:"description"`
	} `json:"rights"`
	Confidence float64 `json:"confidence"`
}

func (p *Pipeline) completeStructure(ctx context.Context, text string) (ai.Structure, error) {
	sample := text
	if len(sample) > 24000 {
		sample = sample[:24000]
	}
	raw, err := p.Completer.Complete(ctx, structurePrompt, sample)
	if err != nil {
		return ai.Structure{}, err
	}

	var parsed completionStructure
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return ai.Structure{}, fmt.Errorf("parse completion structure: %w", err)
	}
	if parsed.DocumentType == "" && parsed.Summary == "" && len(parsed.Clauses) == 0 {
		return ai.Structure{}, errors.New("completion structure is empty")
	}

	out := ai.Structure{
		DocumentType: parsed.DocumentType,
		Summary:      parsed.Summary,
		KeyTerms:     parsed.KeyTerms,
		Confidence:   parsed.Confidence,
	}
	for _, c := range parsed.Clauses {
		out.Clauses = append(out.Clauses, ai.Clause{Title: c.Title, OriginalText: c.OriginalText, PlainLanguage: c.PlainLanguage})
	}
	for _, r := range parsed.Risks {
		out.Risks = append(out.Risks, ai.Risk{Title: r.Title, Severity: r.Severity, Rationale: r.Rationale})
	}
	for _, o := range parsed.Obligations {
		out.Obligations = append(out.Obligations, ai.Obligation{Party: o.Party, Description: o.Description})
	}
	for _, r := range parsed.Rights {
		out.Rights = append(out.Rights, ai.Right{Party: r.Party, Description: r.Description})
	}
	return out, nil
}

// toProcessing normalizes a raw structure into persisted form: clause IDs are
// assigned sequentially, confidence is clamped, and slices are never nil so
// the JSON shape stays stable.
func toProcessing(s ai.Structure, fullText string) documents.Processing {
	p := documents.Processing{
		DocumentType: s.DocumentType,
		Summary: documents.Summary{
			Text:     s.Summary,
			KeyTerms: append([]string{}, s.KeyTerms...),
		},
		Clauses:     make([]documents.Clause, 0, len(s.Clauses)),
		Risks:       make([]documents.Risk, 0, len(s.Risks)),
		Obligations: make([]documents.Obligation, 0, len(s.Obligations)),
		Rights:      make([]documents.Right, 0, len(s.Rights)),
		Confidence:  clamp01(s.Confidence),
	}
	if p.DocumentType == "" {
		p.DocumentType = "other"
	}
	if p.Summary.Text == "" {
		p.Summary.Text = firstLines(fullText, 2)
	}

	for i, c := range s.Clauses {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = fmt.Sprintf("c%d", i+1)
		}
		p.Clauses = append(p.Clauses, documents.Clause{
			ID:            id,
			Title:         c.Title,
			OriginalText:  c.OriginalText,
			PlainLanguage: c.PlainLanguage,
		})
	}
	for _, r := range s.Risks {
		p.Risks = append(p.Risks, documents.Risk{Title: r.Title, Severity: normalizeSeverity(r.Severity), Rationale: r.Rationale})
	}
	for _, o := range s.Obligations {
		p.Obligations = append(p.Obligations, documents.Obligation{Party: o.Party, Description: o.Description})
	}
	for _, r := range s.Rights {
		p.Rights = append(p.Rights, documents.Right{Party: r.Party, Description: r.Description})
	}
	return p
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return "low"
	case "high", "critical":
		return "high"
	default:
		return "medium"
	}
}

func firstLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	out := strings.TrimSpace(strings.Join(lines, " "))
	if len(out) > 400 {
		out = out[:400]
	}
	return out
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
