package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"legaldocs-backend/internal/ai"
)

// Client implements ai.Completer using a generateContent style endpoint.
// One generic capability serves classification, analysis fallback and chat
// grounding; callers shape the prompt.
type Client struct {
	endpoint   string
	model      string
	tokens     ai.TokenSource
	httpClient *http.Client
}

// NewClient constructs a completion client.
func NewClient(endpoint, model string, tokens ai.TokenSource, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("COMPLETION_MODEL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   *genCfg   `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genCfg struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt plus optional grounding context and returns the
// model's text.
func (c *Client) Complete(ctx context.Context, prompt, grounding string) (string, error) {
	text := prompt
	if strings.TrimSpace(grounding) != "" {
		text = prompt + "\n\nContext:\n" + grounding
	}

	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: text}}},
		},
		Config: &genCfg{Temperature: 0},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("completion auth: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("completion request timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", ai.NewStatusError("completion", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("completion response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", ai.NewStatusError("completion", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("completion response missing candidates")
	}

	text = strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("completion response empty content")
	}
	return text, nil
}
