package translate

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

// Client implements ai.Translator against a Translation v2 style API.
type Client struct {
	endpoint   string
	tokens     ai.TokenSource
	httpClient *http.Client
}

// NewClient constructs a translation client.
func NewClient(endpoint string, tokens ai.TokenSource, timeout time.Duration) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type translateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Translate translates texts into target; source may be empty for detection.
// Output order matches input order.
func (c *Client) Translate(ctx context.Context, texts []string, target, source string) ([]ai.Translated, error) {
	if len(texts) == 0 {
		return []ai.Translated{}, nil
	}
	reqBody := translateRequest{
		Q:      texts,
		Target: target,
		Source: source,
		Format: "text",
	}
	body, err := c.post(ctx, "/language/translate/v2", reqBody)
	if err != nil {
		return nil, err
	}

	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("translate response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, ai.NewStatusError("translate", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Data.Translations) != len(texts) {
		return nil, fmt.Errorf("translate response count %d does not match input %d", len(parsed.Data.Translations), len(texts))
	}

	out := make([]ai.Translated, len(texts))
	for i, tr := range parsed.Data.Translations {
		out[i] = ai.Translated{
			Text:           tr.TranslatedText,
			DetectedSource: tr.DetectedSourceLanguage,
		}
	}
	return out, nil
}

type detectResponse struct {
	Data struct {
		Detections [][]struct {
			Language string `json:"language"`
		} `json:"detections"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Detect returns the detected language code for the text.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	body, err := c.post(ctx, "/language/translate/v2/detect", map[string]any{"q": []string{text}})
	if err != nil {
		return "", err
	}

	var parsed detectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("detect response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", ai.NewStatusError("translate", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Data.Detections) == 0 || len(parsed.Data.Detections[0]) == 0 {
		return "", fmt.Errorf("detect response missing detections")
	}
	return parsed.Data.Detections[0][0].Language, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody any) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("translate auth: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("translate request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ai.NewStatusError("translate", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
