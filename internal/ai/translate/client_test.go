package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticTokens struct{}

func (staticTokens) Token(ctx context.Context) (string, error) { return "tok", nil }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, staticTokens{}, 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestTranslatePreservesOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/language/translate/v2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Target != "es" || req.Format != "text" {
			t.Errorf("unexpected request: %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]any{
					{"translatedText": "hola", "detectedSourceLanguage": "en"},
					{"translatedText": "adios", "detectedSourceLanguage": "en"},
				},
			},
		})
	})

	out, err := c.Translate(context.Background(), []string{"hello", "goodbye"}, "es", "")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(out) != 2 || out[0].Text != "hola" || out[1].Text != "adios" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out[0].DetectedSource != "en" {
		t.Fatalf("expected detected source, got %+v", out[0])
	}
}

func TestTranslateRejectsCountMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]any{{"translatedText": "hola"}},
			},
		})
	})

	if _, err := c.Translate(context.Background(), []string{"a", "b"}, "es", ""); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestDetectReturnsFirstDetection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/language/translate/v2/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"detections": [][]map[string]any{{{"language": "fr"}}},
			},
		})
	})

	code, err := c.Detect(context.Background(), "bonjour")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if code != "fr" {
		t.Fatalf("expected fr, got %q", code)
	}
}

func TestTranslateEmptyInputSkipsRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	out, err := c.Translate(context.Background(), nil, "es", "")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(out) != 0 || called {
		t.Fatalf("expected no request for empty input, called=%v out=%+v", called, out)
	}
}
