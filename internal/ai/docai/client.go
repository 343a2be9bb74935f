package docai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"legaldocs-backend/internal/ai"
)

// Client implements ai.Structurer against a Document AI style processor
// endpoint. The processor is expected to be a legal-document extractor that
// returns clause/risk/obligation/right entities.
type Client struct {
	endpoint   string
	processor  string
	tokens     ai.TokenSource
	httpClient *http.Client
}

// NewClient constructs a structuring client.
func NewClient(endpoint, processor string, tokens ai.TokenSource, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(processor) == "" {
		return nil, fmt.Errorf("structuring processor path is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:  strings.TrimRight(endpoint, "/"),
		processor: strings.Trim(processor, "/"),
		tokens:    tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type processRequest struct {
	RawDocument *rawDocument `json:"rawDocument,omitempty"`
	InlineText  string       `json:"inlineText,omitempty"`
}

type rawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type processResponse struct {
	Document struct {
		Text     string   `json:"text"`
		Entities []entity `json:"entities"`
	} `json:"document"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type entity struct {
	Type        string  `json:"type"`
	MentionText string  `json:"mentionText"`
	Confidence  float64 `json:"confidence"`
	Properties  []struct {
		Type        string `json:"type"`
		MentionText string `json:"mentionText"`
	} `json:"properties,omitempty"`
}

// ExtractStructure runs the processor over raw bytes (PDF, image scans).
func (c *Client) ExtractStructure(ctx context.Context, content []byte, mimeType string) (ai.Structure, error) {
	req := processRequest{
		RawDocument: &rawDocument{
			Content:  base64.StdEncoding.EncodeToString(content),
			MimeType: mimeType,
		},
	}
	return c.process(ctx, req)
}

// ExtractStructureFromText runs the processor over already-extracted text.
func (c *Client) ExtractStructureFromText(ctx context.Context, text string) (ai.Structure, error) {
	return c.process(ctx, processRequest{InlineText: text})
}

func (c *Client) process(ctx context.Context, reqBody processRequest) (ai.Structure, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ai.Structure{}, err
	}

	url := fmt.Sprintf("%s/v1/%s:process", c.endpoint, c.processor)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ai.Structure{}, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return ai.Structure{}, fmt.Errorf("structuring auth: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "Client.Timeout") {
			return ai.Structure{}, fmt.Errorf("structuring request timeout: %w", err)
		}
		return ai.Structure{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ai.Structure{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return ai.Structure{}, ai.NewStatusError("structuring", resp.StatusCode, truncateBody(body))
	}

	var parsed processResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ai.Structure{}, fmt.Errorf("structuring response parse: %w", err)
	}
	if parsed.Error != nil {
		return ai.Structure{}, ai.NewStatusError("structuring", parsed.Error.Code, parsed.Error.Message)
	}

	return mapEntities(parsed), nil
}

// mapEntities converts processor entities into a Structure. Missing entity
// kinds simply leave their section empty.
func mapEntities(resp processResponse) ai.Structure {
	out := ai.Structure{}
	for _, e := range resp.Document.Entities {
		switch strings.ToLower(e.Type) {
		case "document_type":
			if out.DocumentType == "" {
				out.DocumentType = e.MentionText
				out.Confidence = e.Confidence
			}
		case "summary":
			if out.Summary == "" {
				out.Summary = e.MentionText
			}
		case "key_term":
			out.KeyTerms = append(out.KeyTerms, e.MentionText)
		case "clause":
			out.Clauses = append(out.Clauses, ai.Clause{
				Title:         property(e, "title"),
				OriginalText:  e.MentionText,
				PlainLanguage: property(e, "plain_language"),
			})
		case "risk":
			out.Risks = append(out.Risks, ai.Risk{
				Title:     property(e, "title"),
				Severity:  property(e, "severity"),
				Rationale: e.MentionText,
			})
		case "obligation":
			out.Obligations = append(out.Obligations, ai.Obligation{
				Party:       property(e, "party"),
				Description: e.MentionText,
			})
		case "right":
			out.Rights = append(out.Rights, ai.Right{
				Party:       property(e, "party"),
				Description: e.MentionText,
			})
		}
	}
	if out.Summary == "" {
		out.Summary = firstLines(resp.Document.Text, 3)
	}
	return out
}

func property(e entity, name string) string {
	for _, p := range e.Properties {
		if strings.EqualFold(p.Type, name) {
			return p.MentionText
		}
	}
	return ""
}

func firstLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

func truncateBody(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
