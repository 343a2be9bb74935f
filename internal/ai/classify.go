package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind buckets an external-service failure so the HTTP edge can show an
// actionable message without parsing raw error text.
type Kind string

const (
	KindCredential Kind = "credential"
	KindPermission Kind = "permission"
	KindQuota      Kind = "quota"
	KindUnknown    Kind = "unknown"
)

// Error is a classified failure from an external AI service call.
type Error struct {
	Service string
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (kind=%s status=%d)", e.Service, e.Message, e.Kind, e.Status)
}

// ClassifyStatus maps an HTTP status from a Google-style API to a failure kind.
func ClassifyStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindCredential
	case http.StatusForbidden:
		return KindPermission
	case http.StatusTooManyRequests:
		return KindQuota
	default:
		return KindUnknown
	}
}

// NewStatusError builds a classified Error for a non-2xx response.
func NewStatusError(service string, status int, message string) *Error {
	return &Error{
		Service: service,
		Kind:    ClassifyStatus(status),
		Status:  status,
		Message: message,
	}
}

// KindOf extracts the failure kind from an error chain, defaulting to unknown.
func KindOf(err error) Kind {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	return KindUnknown
}
