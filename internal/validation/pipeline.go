package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/extract"
	"legaldocs-backend/internal/shared/telemetry"
)

var (
	// ErrEmptyFile rejects zero-length payloads before any external call.
	ErrEmptyFile = errors.New("empty file")
	// ErrTooLarge rejects payloads over the configured maximum.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedFormat rejects formats outside the allow-list.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Result is the transient outcome of one validation attempt.
type Result struct {
	IsValid       bool
	IsLegal       bool
	DocumentType  string
	Confidence    float64
	Message       string
	ExtractedText string
}

// Formats admitted for upload. MIME types and extensions are both accepted
// because browsers are unreliable about multipart content types.
var allowedMimeTypes = map[string]string{
	"application/pdf": "pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/msword": "doc",
	"image/png":          "png",
	"image/jpeg":         "jpg",
}

var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".docx": {}, ".doc": {}, ".png": {}, ".jpg": {}, ".jpeg": {},
}

// Pipeline classifies raw bytes as a legal document worth admitting. It never
// persists anything; admission is the caller's decision.
type Pipeline struct {
	Structurer ai.Structurer
	Completer  ai.Completer

	MaxBytes            int64
	ConfidenceThreshold float64
}

// Validate runs the admission checks in order: size, format, text extraction
// (with degraded fallback), then legal classification.
func (p *Pipeline) Validate(ctx context.Context, data []byte, filename, mimeType string) (Result, error) {
	if len(data) == 0 {
		return Result{Message: "file is empty"}, ErrEmptyFile
	}
	if p.MaxBytes > 0 && int64(len(data)) > p.MaxBytes {
		return Result{Message: fmt.Sprintf("file exceeds %d bytes", p.MaxBytes)}, ErrTooLarge
	}
	if !formatAllowed(filename, mimeType) {
		return Result{Message: fmt.Sprintf("format not supported: %s", mimeType)}, ErrUnsupportedFormat
	}

	text := p.extractText(ctx, data, filename, mimeType)

	isLegal, docType, confidence := p.classify(ctx, text)

	threshold := p.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.6
	}

	// A confident "not legal" verdict must not pass: both the verdict and
	// the confidence floor have to hold.
	result := Result{
		IsValid:       isLegal && confidence >= threshold,
		IsLegal:       isLegal,
		DocumentType:  docType,
		Confidence:    confidence,
		ExtractedText: text,
	}
	if result.IsValid {
		result.Message = fmt.Sprintf("recognized as a %s", docType)
	} else {
		result.Message = "document does not look like a legal document"
	}
	return result, nil
}

// extractText prefers local extraction, then the OCR service, then the
// degraded raw-text heuristic. It never fails the pipeline.
func (p *Pipeline) extractText(ctx context.Context, data []byte, filename, mimeType string) string {
	text, err := extract.Text(ctx, data, mimeType, filename)
	if err == nil && strings.TrimSpace(text) != "" {
		return text
	}

	if p.Structurer != nil {
		structure, serr := p.Structurer.ExtractStructure(ctx, data, mimeType)
		if serr == nil && strings.TrimSpace(structure.Summary) != "" {
			return structure.Summary
		}
		if serr != nil {
			telemetry.Warn("validation.ocr_failed", map[string]any{
				"mime_type": mimeType,
				"error":     serr.Error(),
			})
		}
	}

	return extract.Fallback(data)
}

type classification struct {
	IsLegal      bool    `json:"isLegal"`
	DocumentType string  `json:"documentType"`
	Confidence   float64 `json:"confidence"`
}

const classifyPrompt = `You are a legal document classifier. Decide whether the text below is a legal document (contract, lease, NDA, terms of service, will, power of attorney, etc).
Respond with JSON only: {"isLegal": bool, "documentType": "<category or 'unknown'>", "confidence": <0..1>}`

// classify asks the completion service first and falls back to a keyword
// heuristic when it is unavailable.
func (p *Pipeline) classify(ctx context.Context, text string) (bool, string, float64) {
	sample := text
	if len(sample) > 6000 {
		sample = sample[:6000]
	}

	if p.Completer != nil {
		raw, err := p.Completer.Complete(ctx, classifyPrompt, sample)
		if err == nil {
			var parsed classification
			if jerr := json.Unmarshal([]byte(extractJSON(raw)), &parsed); jerr == nil && parsed.DocumentType != "" {
				return parsed.IsLegal, strings.ToLower(parsed.DocumentType), clamp01(parsed.Confidence)
			}
		} else {
			telemetry.Warn("validation.classifier_failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	return heuristicClassify(sample)
}

var legalKeywords = []string{
	"agreement", "contract", "lease", "party", "parties", "whereas",
	"hereby", "tenant", "landlord", "obligation", "liability", "clause",
	"terms", "conditions", "indemnify", "governing law", "termination",
}

var typeKeywords = map[string]string{
	"lease":             "lease",
	"rent":              "lease",
	"landlord":          "lease",
	"non-disclosure":    "nda",
	"confidentiality":   "nda",
	"employment":        "employment_contract",
	"terms of service":  "terms_of_service",
	"privacy policy":    "privacy_policy",
	"power of attorney": "power_of_attorney",
	"last will":         "will",
}

func heuristicClassify(text string) (bool, string, float64) {
	lower := strings.ToLower(text)

	hits := 0
	for _, kw := range legalKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	confidence := clamp01(float64(hits) / 8.0)

	docType := "unknown"
	for kw, t := range typeKeywords {
		if strings.Contains(lower, kw) {
			docType = t
			break
		}
	}
	if docType == "unknown" && hits >= 3 {
		docType = "contract"
	}

	return hits >= 3, docType, confidence
}

func formatAllowed(filename, mimeType string) bool {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if _, ok := allowedMimeTypes[clean]; ok {
		return true
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// extractJSON strips markdown fences the completion service sometimes wraps
// around JSON payloads.
func extractJSON(raw string) string {
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
