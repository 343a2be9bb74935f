package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/telemetry"
)

var (
	// ErrEmptyQuery rejects blank questions before any external call.
	ErrEmptyQuery = errors.New("empty query")
	// ErrDocumentNotReady means the document has no analysis results yet.
	ErrDocumentNotReady = errors.New("document not analyzed yet")
	// ErrChatUnavailable means the completion backend failed.
	ErrChatUnavailable = errors.New("chat unavailable")
)

// Citation points an answer at a specific analyzed clause.
type Citation struct {
	ClauseID string `json:"clauseId"`
	Title    string `json:"title"`
}

// Answer is one grounded chat response.
type Answer struct {
	Answer     string     `json:"answer"`
	Confidence float64    `json:"confidence"`
	Sources    []Citation `json:"sources"`
}

// Engine answers questions about one analyzed document, grounded in its
// clauses, risks, obligations and rights so answers can cite real sources.
type Engine struct {
	Repo      documents.Repo
	Completer ai.Completer

	// ContextMaxBytes bounds the grounding block built from the analysis.
	ContextMaxBytes int
}

const answerPrompt = `You are a legal assistant answering questions about one document. Use ONLY the document context below. Clauses are tagged with an id in brackets; risks, obligations and rights carry no id.
Respond with JSON only: {"answer": "<plain language answer>", "confidence": <0..1>, "sources": ["<clause id>", ...]}
Cite only clause ids that actually support the answer. If the document does not cover the question, say so and cite nothing.`

// Ask answers a question about a document. Preconditions are checked before
// any completion call is made.
func (e *Engine) Ask(ctx context.Context, documentID, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		metrics.IncChatQuery("rejected")
		return Answer{}, ErrEmptyQuery
	}

	doc, err := e.Repo.Get(ctx, documentID)
	if err != nil {
		metrics.IncChatQuery("rejected")
		return Answer{}, err
	}
	if doc.Status != documents.StatusAnalyzed || doc.Processing == nil {
		metrics.IncChatQuery("rejected")
		return Answer{}, ErrDocumentNotReady
	}

	ranked := rankSections(query, doc.Processing)
	grounding := buildContext(ranked, e.ContextMaxBytes)
	if grounding == "" {
		grounding = doc.Processing.Summary.Text
	}

	prompt := answerPrompt + "\n\nQuestion: " + strings.TrimSpace(query)
	raw, err := e.Completer.Complete(ctx, prompt, grounding)
	if err != nil {
		metrics.IncChatQuery("failed")
		return Answer{}, fmt.Errorf("%w: %w", ErrChatUnavailable, err)
	}

	answer := parseAnswer(raw)
	answer.Sources = validateCitations(answer.Sources, doc.Processing.Clauses)
	answer.Confidence = clamp01(answer.Confidence)

	metrics.IncChatQuery("answered")
	telemetry.Info("chat.answered", map[string]any{
		"document_id": documentID,
		"sources":     len(answer.Sources),
		"confidence":  answer.Confidence,
	})
	return answer, nil
}

type rawAnswer struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// parseAnswer decodes the model's JSON reply, falling back to treating the
// whole reply as the answer when the model ignores the format.
func parseAnswer(raw string) Answer {
	var parsed rawAnswer
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err == nil && parsed.Answer != "" {
		out := Answer{Answer: parsed.Answer, Confidence: parsed.Confidence}
		for _, id := range parsed.Sources {
			out.Sources = append(out.Sources, Citation{ClauseID: id})
		}
		return out
	}
	return Answer{Answer: strings.TrimSpace(raw), Confidence: 0.5}
}

// validateCitations keeps only citations naming clauses the document really
// has, and fills in their titles. The model is not trusted on ids.
func validateCitations(cited []Citation, clauses []documents.Clause) []Citation {
	byID := make(map[string]documents.Clause, len(clauses))
	for _, c := range clauses {
		byID[c.ID] = c
	}

	out := make([]Citation, 0, len(cited))
	seen := map[string]struct{}{}
	for _, cit := range cited {
		id := strings.TrimSpace(cit.ClauseID)
		clause, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Citation{ClauseID: id, Title: clause.Title})
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
