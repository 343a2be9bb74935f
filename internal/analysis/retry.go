package analysis

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// retryingStructurer wraps a Structurer with a single retry on transient
// failures. Credential and permission errors never retry.
type retryingStructurer struct {
	base       ai.Structurer
	documentID string
}

func newRetryingStructurer(base ai.Structurer, documentID string) ai.Structurer {
	if base == nil {
		return nil
	}
	return retryingStructurer{base: base, documentID: documentID}
}

func (r retryingStructurer) ExtractStructure(ctx context.Context, content []byte, mimeType string) (ai.Structure, error) {
	out, err := r.base.ExtractStructure(ctx, content, mimeType)
	if err == nil || !shouldRetry(err) {
		return out, err
	}
	if werr := r.wait(ctx, err); werr != nil {
		return ai.Structure{}, werr
	}
	return r.base.ExtractStructure(ctx, content, mimeType)
}

func (r retryingStructurer) ExtractStructureFromText(ctx context.Context, text string) (ai.Structure, error) {
	out, err := r.base.ExtractStructureFromText(ctx, text)
	if err == nil || !shouldRetry(err) {
		return out, err
	}
	if werr := r.wait(ctx, err); werr != nil {
		return ai.Structure{}, werr
	}
	return r.base.ExtractStructureFromText(ctx, text)
}

func (r retryingStructurer) wait(ctx context.Context, cause error) error {
	telemetry.Warn("analysis.retry", map[string]any{
		"document_id": r.documentID,
		"attempt":     1,
		"error":       cause.Error(),
	})
	select {
	case <-time.After(retryBaseDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	switch ai.KindOf(err) {
	case ai.KindCredential, ai.KindPermission:
		return false
	case ai.KindQuota:
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
