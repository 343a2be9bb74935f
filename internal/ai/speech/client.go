package speech

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

// Client implements ai.Recognizer against a Speech v1 style recognize call.
type Client struct {
	endpoint   string
	tokens     ai.TokenSource
	httpClient *http.Client
}

// NewClient constructs a speech recognition client.
func NewClient(endpoint string, tokens ai.TokenSource, timeout time.Duration) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	LanguageCode string `json:"languageCode"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Recognize transcribes an audio payload in the given language.
func (c *Client) Recognize(ctx context.Context, audio []byte, languageCode string) (ai.Transcript, error) {
	if languageCode == "" {
		languageCode = "en-US"
	}
	reqBody := recognizeRequest{
		Config: recognizeConfig{LanguageCode: languageCode},
		Audio:  recognizeAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ai.Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/speech:recognize", bytes.NewReader(payload))
	if err != nil {
		return ai.Transcript{}, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return ai.Transcript{}, fmt.Errorf("speech auth: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "Client.Timeout") {
			return ai.Transcript{}, fmt.Errorf("speech request timeout: %w", err)
		}
		return ai.Transcript{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ai.Transcript{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return ai.Transcript{}, ai.NewStatusError("speech", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ai.Transcript{}, fmt.Errorf("speech response parse: %w", err)
	}
	if parsed.Error != nil {
		return ai.Transcript{}, ai.NewStatusError("speech", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Results) == 0 || len(parsed.Results[0].Alternatives) == 0 {
		return ai.Transcript{}, fmt.Errorf("speech response missing results")
	}

	alt := parsed.Results[0].Alternatives[0]
	return ai.Transcript{Text: alt.Transcript, Confidence: alt.Confidence}, nil
}
