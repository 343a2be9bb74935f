package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/shared/metrics"
)

var (
	// ErrUnsupportedLanguage rejects targets outside the fixed set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrEmptyText rejects blank translation input before any external call.
	ErrEmptyText = errors.New("empty text")
	// ErrTranslationUnavailable means the translation backend failed.
	ErrTranslationUnavailable = errors.New("translation unavailable")
	// ErrDocumentNotReady means the document has no analysis to translate.
	ErrDocumentNotReady = errors.New("document not analyzed yet")
)

// Item is one result in a batch translation. Failed items carry Error and an
// empty Text; the slice always matches the input order and length.
type Item struct {
	Text           string `json:"text"`
	DetectedSource string `json:"detectedSource,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Summary is the structured analysis summary accepted for translation. It is
// self-contained: callers pass the content, not a document reference.
type Summary struct {
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"keyPoints"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
}

// SummaryTranslation is the same structure rendered in the target language.
type SummaryTranslation struct {
	Language        string   `json:"language"`
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"keyPoints"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
}

// Dispatcher routes translation operations to the backend client, enforcing
// the supported-language set and batch ordering.
type Dispatcher struct {
	Translator ai.Translator
	Repo       documents.Repo
}

// TranslateText translates a single string.
func (d *Dispatcher) TranslateText(ctx context.Context, text, target, source string) (Item, error) {
	if strings.TrimSpace(text) == "" {
		return Item{}, ErrEmptyText
	}
	if err := checkLanguages(target, source); err != nil {
		return Item{}, err
	}

	out, err := d.Translator.Translate(ctx, []string{text}, target, source)
	if err != nil {
		metrics.IncTranslation("text", "failed")
		return Item{}, fmt.Errorf("%w: %w", ErrTranslationUnavailable, err)
	}
	if len(out) != 1 {
		metrics.IncTranslation("text", "failed")
		return Item{}, fmt.Errorf("%w: expected 1 result, got %d", ErrTranslationUnavailable, len(out))
	}
	metrics.IncTranslation("text", "ok")
	return Item{Text: out[0].Text, DetectedSource: out[0].DetectedSource}, nil
}

// TranslateTexts translates a batch. One failing item does not fail the
// batch: its slot carries the error and the rest keep their positions.
func (d *Dispatcher) TranslateTexts(ctx context.Context, texts []string, target, source string) ([]Item, error) {
	if len(texts) == 0 {
		return []Item{}, nil
	}
	if err := checkLanguages(target, source); err != nil {
		return nil, err
	}

	items := make([]Item, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			items[i] = Item{Error: ErrEmptyText.Error()}
			continue
		}
		out, err := d.Translator.Translate(ctx, []string{text}, target, source)
		if err != nil {
			metrics.IncTranslation("batch", "failed")
			items[i] = Item{Error: err.Error()}
			continue
		}
		if len(out) != 1 {
			items[i] = Item{Error: "no translation returned"}
			continue
		}
		metrics.IncTranslation("batch", "ok")
		items[i] = Item{Text: out[0].Text, DetectedSource: out[0].DetectedSource}
	}
	return items, nil
}

// TranslateSummary renders a structured summary object in the target
// language with one batched backend call. Every non-blank field is
// translated; blank fields keep their slots so the structure survives
// round-tripping. The stored document is never consulted.
func (d *Dispatcher) TranslateSummary(ctx context.Context, in Summary, target string) (SummaryTranslation, error) {
	if !IsSupported(target) {
		return SummaryTranslation{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, target)
	}

	batch := make([]string, 0, 2+len(in.KeyPoints)+len(in.Recommendations))
	add := func(s string) {
		if strings.TrimSpace(s) != "" {
			batch = append(batch, s)
		}
	}
	add(in.Summary)
	add(in.RiskLevel)
	for _, p := range in.KeyPoints {
		add(p)
	}
	for _, r := range in.Recommendations {
		add(r)
	}
	if len(batch) == 0 {
		return SummaryTranslation{}, ErrEmptyText
	}

	out, err := d.Translator.Translate(ctx, batch, target, "")
	if err != nil {
		metrics.IncTranslation("summary", "failed")
		return SummaryTranslation{}, fmt.Errorf("%w: %w", ErrTranslationUnavailable, err)
	}
	if len(out) != len(batch) {
		metrics.IncTranslation("summary", "failed")
		return SummaryTranslation{}, fmt.Errorf("%w: expected %d results, got %d", ErrTranslationUnavailable, len(batch), len(out))
	}

	// Unpack in the same order the batch was built.
	i := 0
	take := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return s
		}
		t := out[i].Text
		i++
		return t
	}
	result := SummaryTranslation{
		Language:        target,
		KeyPoints:       []string{},
		Recommendations: []string{},
	}
	result.Summary = take(in.Summary)
	result.RiskLevel = take(in.RiskLevel)
	for _, p := range in.KeyPoints {
		result.KeyPoints = append(result.KeyPoints, take(p))
	}
	for _, r := range in.Recommendations {
		result.Recommendations = append(result.Recommendations, take(r))
	}
	metrics.IncTranslation("summary", "ok")
	return result, nil
}

// DocumentSummary builds a translatable Summary from a stored document's
// analysis. Convenience for callers that only hold a document ID.
func (d *Dispatcher) DocumentSummary(ctx context.Context, documentID string) (Summary, error) {
	doc, err := d.Repo.Get(ctx, documentID)
	if err != nil {
		return Summary{}, err
	}
	if doc.Processing == nil {
		return Summary{}, ErrDocumentNotReady
	}
	return Summary{
		Summary:   doc.Processing.Summary.Text,
		KeyPoints: doc.Processing.Summary.KeyTerms,
		RiskLevel: highestSeverity(doc.Processing.Risks),
	}, nil
}

var severityRank = map[string]int{"low": 1, "medium": 2, "high": 3}

func highestSeverity(risks []documents.Risk) string {
	level := ""
	for _, r := range risks {
		if severityRank[r.Severity] > severityRank[level] {
			level = r.Severity
		}
	}
	return level
}

// DetectLanguage reports the language of a text sample.
func (d *Dispatcher) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	code, err := d.Translator.Detect(ctx, text)
	if err != nil {
		metrics.IncTranslation("detect", "failed")
		return "", fmt.Errorf("%w: %w", ErrTranslationUnavailable, err)
	}
	metrics.IncTranslation("detect", "ok")
	return code, nil
}

func checkLanguages(target, source string) error {
	if !IsSupported(target) {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, target)
	}
	if source != "" && !IsSupported(source) {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, source)
	}
	return nil
}
