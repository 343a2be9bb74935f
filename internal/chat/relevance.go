package chat

import (
	"sort"
	"strings"
	"unicode"

	"legaldocs-backend/internal/documents"
)

// section is one retrieval candidate. Clauses carry an id and are citable;
// risks, obligations and rights enter the grounding as plain text only.
type section struct {
	id    string
	title string
	text  string
	score float64
}

// rankSections scores every clause, risk, obligation and right by token
// overlap with the query, most relevant first. Zero-score sections keep their
// document order at the tail so short documents still produce grounding
// context.
func rankSections(query string, p *documents.Processing) []section {
	queryTokens := tokenize(query)

	out := make([]section, 0, len(p.Clauses)+len(p.Risks)+len(p.Obligations)+len(p.Rights))
	for _, c := range p.Clauses {
		out = append(out, section{id: c.ID, title: c.Title, text: c.OriginalText,
			score: overlap(queryTokens, tokenize(c.Title+" "+c.OriginalText+" "+c.PlainLanguage))})
	}
	for _, r := range p.Risks {
		text := strings.TrimSpace(r.Severity + " severity. " + r.Rationale)
		out = append(out, section{title: "Risk: " + r.Title, text: text,
			score: overlap(queryTokens, tokenize(r.Title+" "+r.Rationale))})
	}
	for _, o := range p.Obligations {
		out = append(out, section{title: partyTitle("Obligation", o.Party), text: o.Description,
			score: overlap(queryTokens, tokenize(o.Party+" "+o.Description))})
	}
	for _, r := range p.Rights {
		out = append(out, section{title: partyTitle("Right", r.Party), text: r.Description,
			score: overlap(queryTokens, tokenize(r.Party+" "+r.Description))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func partyTitle(kind, party string) string {
	if party == "" {
		return kind
	}
	return kind + " (" + party + ")"
}

// buildContext renders ranked sections into a grounding block, stopping at
// maxBytes so prompts stay bounded for large documents. Only clause sections
// get an id tag; everything else is untagged and therefore uncitable.
func buildContext(ranked []section, maxBytes int) string {
	if maxBytes <= 0 {
		maxBytes = 12 << 10
	}

	var b strings.Builder
	for _, s := range ranked {
		entry := s.title + "\n" + s.text + "\n\n"
		if s.id != "" {
			entry = "[" + s.id + "] " + entry
		}
		if b.Len()+len(entry) > maxBytes {
			break
		}
		b.WriteString(entry)
	}
	return strings.TrimSpace(b.String())
}

// stopwords that carry no signal for clause matching.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "be": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "and": {}, "or": {},
	"what": {}, "when": {}, "how": {}, "do": {}, "does": {}, "i": {}, "my": {},
	"can": {}, "will": {}, "this": {}, "that": {}, "it": {}, "if": {},
}

func tokenize(s string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, field := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(field) < 2 {
			continue
		}
		if _, skip := stopwords[field]; skip {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

func overlap(query, text map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if _, ok := text[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
