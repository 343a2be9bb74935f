package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/telemetry"
)

// ErrCredential marks a fatal credential failure: missing configuration or a
// failed token exchange. Dependent operations must not retry silently.
var ErrCredential = errors.New("credential error")

// Scopes requested for all external AI service calls.
var defaultScopes = []string{"https://www.googleapis.com/auth/cloud-platform"}

const refreshMargin = 60 * time.Second

const defaultExchangeTimeout = 30 * time.Second

// Cache is the process-wide access token cache. Concurrent callers needing a
// refresh coalesce into one token-endpoint round trip: the refresh happens
// under the mutex, so late arrivals observe the fresh token instead of
// starting their own exchange.
type Cache struct {
	mu     sync.Mutex
	source oauth2.TokenSource
	token  *oauth2.Token
	margin time.Duration
}

// New builds a Cache from service-account material on disk. Every token
// exchange runs over an HTTP client bounded by exchangeTimeout, so a hung
// token endpoint cannot block callers queued on the refresh indefinitely.
func New(ctx context.Context, projectID, credentialsFile string, exchangeTimeout time.Duration) (*Cache, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("%w: GOOGLE_PROJECT_ID is required", ErrCredential)
	}
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("%w: GOOGLE_APPLICATION_CREDENTIALS is required", ErrCredential)
	}
	material, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read service-account material: %v", ErrCredential, err)
	}
	cfg, err := google.JWTConfigFromJSON(material, defaultScopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse service-account material: %v", ErrCredential, err)
	}
	if exchangeTimeout <= 0 {
		exchangeTimeout = defaultExchangeTimeout
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: exchangeTimeout})
	return NewWithSource(cfg.TokenSource(ctx)), nil
}

// NewWithSource wraps an arbitrary token source; used by tests and by
// environments with ambient credentials.
func NewWithSource(source oauth2.TokenSource) *Cache {
	return &Cache{
		source: source,
		margin: refreshMargin,
	}
}

// Token returns a valid access token, refreshing when the cached token is
// absent or within the safety margin of expiry.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid() {
		return c.token.AccessToken, nil
	}

	tok, err := c.source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrCredential, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token exchange returned empty token", ErrCredential)
	}
	c.token = tok
	metrics.IncCredentialRefresh()
	telemetry.Info("credentials.refreshed", map[string]any{
		"expires_at": tok.Expiry.UTC().Format(time.RFC3339),
	})
	return tok.AccessToken, nil
}

// Healthy reports whether a valid token can currently be obtained. It never
// exposes token material.
func (c *Cache) Healthy(ctx context.Context) error {
	_, err := c.Token(ctx)
	return err
}

func (c *Cache) valid() bool {
	if c.token == nil || c.token.AccessToken == "" {
		return false
	}
	if c.token.Expiry.IsZero() {
		return true
	}
	return time.Until(c.token.Expiry) > c.margin
}
