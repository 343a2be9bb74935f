package documents

import "time"

// Lifecycle states. A document enters the store as StatusUploaded, moves to
// StatusValidating while analysis is in flight, and terminates in
// StatusAnalyzed or StatusFailed. Processing attached implies StatusAnalyzed.
const (
	StatusUploaded   = "uploaded"
	StatusValidating = "validating"
	StatusAnalyzed   = "analyzed"
	StatusFailed     = "failed"
)

// Document is an admitted legal document. The store owns RawContent for the
// document's lifetime; ID is content-addressed and never changes.
type Document struct {
	ID               string
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	RawContent       []byte
	ExtractedText    string
	Status           string
	Processing       *Processing
	UploadedAt       time.Time
	AnalyzedAt       *time.Time
}

// Processing is the structured analysis attached 1:1 to a document, write-once.
type Processing struct {
	DocumentType string       `json:"documentType"`
	Summary      Summary      `json:"summary"`
	Clauses      []Clause     `json:"clauses"`
	Risks        []Risk       `json:"risks"`
	Obligations  []Obligation `json:"obligations"`
	Rights       []Right      `json:"rights"`
	Confidence   float64      `json:"confidence"`
}

// Summary is free text plus short key-term phrases.
type Summary struct {
	Text     string   `json:"text"`
	KeyTerms []string `json:"keyTerms"`
}

// Clause pairs an extracted provision with a plain-language rewrite. ID is
// stable for the document's lifetime and citable from chat answers.
type Clause struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	OriginalText  string `json:"originalText"`
	PlainLanguage string `json:"plainLanguage"`
}

// Risk flags a provision with a severity and rationale.
type Risk struct {
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Rationale string `json:"rationale"`
}

// Obligation is a duty the document imposes on a party.
type Obligation struct {
	Party       string `json:"party,omitempty"`
	Description string `json:"description"`
}

// Right is an entitlement the document grants to a party.
type Right struct {
	Party       string `json:"party,omitempty"`
	Description string `json:"description"`
}

// clone returns a deep-enough copy so repo readers never share mutable state
// with writers.
func (d Document) clone() Document {
	out := d
	out.RawContent = append([]byte(nil), d.RawContent...)
	if d.Processing != nil {
		p := d.Processing.clone()
		out.Processing = &p
	}
	if d.AnalyzedAt != nil {
		at := *d.AnalyzedAt
		out.AnalyzedAt = &at
	}
	return out
}

func (p Processing) clone() Processing {
	out := p
	out.Summary.KeyTerms = append([]string(nil), p.Summary.KeyTerms...)
	out.Clauses = append([]Clause(nil), p.Clauses...)
	out.Risks = append([]Risk(nil), p.Risks...)
	out.Obligations = append([]Obligation(nil), p.Obligations...)
	out.Rights = append([]Right(nil), p.Rights...)
	return out
}
