package ai

import (
	"context"
	"errors"
)

// TokenSource supplies bearer tokens for calls to external AI services.
// credentials.Cache is the production implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Structure is the raw extraction result returned by the structuring service.
// Any section may be empty; callers treat empty as "nothing found".
type Structure struct {
	DocumentType string
	Summary      string
	KeyTerms     []string
	Clauses      []Clause
	Risks        []Risk
	Obligations  []Obligation
	Rights       []Right
	Confidence   float64
}

// Clause is a contractual provision as extracted, before IDs are assigned.
type Clause struct {
	ID            string
	Title         string
	OriginalText  string
	PlainLanguage string
}

// Risk flags a provision that may disadvantage the reader.
type Risk struct {
	Title     string
	Severity  string
	Rationale string
}

// Obligation is a duty the document imposes on a party.
type Obligation struct {
	Party       string
	Description string
}

// Right is an entitlement the document grants to a party.
type Right struct {
	Party       string
	Description string
}

// Structurer extracts document structure (OCR + entity extraction).
type Structurer interface {
	ExtractStructure(ctx context.Context, content []byte, mimeType string) (Structure, error)
	ExtractStructureFromText(ctx context.Context, text string) (Structure, error)
}

// Completer is the single generative completion capability. Classification,
// analysis fallback and chat grounding all route through it.
type Completer interface {
	Complete(ctx context.Context, prompt, grounding string) (string, error)
}

// Translated is one translated string plus the detected source language when
// the caller did not supply one.
type Translated struct {
	Text           string
	DetectedSource string
}

// Translator translates text and detects languages.
type Translator interface {
	Translate(ctx context.Context, texts []string, target, source string) ([]Translated, error)
	Detect(ctx context.Context, text string) (string, error)
}

// Transcript is a speech recognition result.
type Transcript struct {
	Text       string
	Confidence float64
}

// Recognizer transcribes audio payloads.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, languageCode string) (Transcript, error)
}

// ErrNotConfigured is returned by placeholder clients when no credentials or
// endpoint configuration is present.
var ErrNotConfigured = errors.New("external AI service not configured")

// Unconfigured satisfies every client interface and always fails with
// ErrNotConfigured. It keeps dev environments bootable without credentials.
type Unconfigured struct{}

func (Unconfigured) ExtractStructure(ctx context.Context, content []byte, mimeType string) (Structure, error) {
	return Structure{}, ErrNotConfigured
}

func (Unconfigured) ExtractStructureFromText(ctx context.Context, text string) (Structure, error) {
	return Structure{}, ErrNotConfigured
}

func (Unconfigured) Complete(ctx context.Context, prompt, grounding string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Translate(ctx context.Context, texts []string, target, source string) ([]Translated, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Detect(ctx context.Context, text string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Recognize(ctx context.Context, audio []byte, languageCode string) (Transcript, error) {
	return Transcript{}, ErrNotConfigured
}
