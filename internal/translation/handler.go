package translation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/shared/server/respond"
)

// Handler exposes translation operations behind a single action-dispatch
// endpoint plus the language listing.
type Handler struct {
	Dispatcher *Dispatcher
}

// NewHandler constructs a Handler.
func NewHandler(d *Dispatcher) *Handler {
	return &Handler{Dispatcher: d}
}

// RegisterRoutes attaches translation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/translate", h.translate)
	rg.GET("/languages", h.languages)
}

type translateRequest struct {
	Action string   `json:"action"`
	Text   string   `json:"text"`
	Texts  []string `json:"texts"`
	Target string   `json:"targetLanguage"`
	Source string   `json:"sourceLanguage"`

	// translate_summary payload. DocumentID is a fallback for callers that
	// want the stored analysis translated instead of supplying the fields.
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"keyPoints"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
	DocumentID      string   `json:"documentId"`
}

func (r translateRequest) summaryInput() Summary {
	return Summary{
		Summary:         r.Summary,
		KeyPoints:       r.KeyPoints,
		RiskLevel:       r.RiskLevel,
		Recommendations: r.Recommendations,
	}
}

func (r translateRequest) hasSummaryFields() bool {
	return r.Summary != "" || len(r.KeyPoints) > 0 || r.RiskLevel != "" || len(r.Recommendations) > 0
}

func (h *Handler) translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case "translate", "":
		item, err := h.Dispatcher.TranslateText(ctx, req.Text, req.Target, req.Source)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respond.OK(c, item)
	case "translate_batch":
		items, err := h.Dispatcher.TranslateTexts(ctx, req.Texts, req.Target, req.Source)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respond.OK(c, gin.H{"items": items})
	case "translate_summary":
		in := req.summaryInput()
		if !req.hasSummaryFields() && req.DocumentID != "" {
			var err error
			in, err = h.Dispatcher.DocumentSummary(ctx, req.DocumentID)
			if err != nil {
				h.respondError(c, err)
				return
			}
		}
		summary, err := h.Dispatcher.TranslateSummary(ctx, in, req.Target)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respond.OK(c, summary)
	case "detect":
		code, err := h.Dispatcher.DetectLanguage(ctx, req.Text)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respond.OK(c, gin.H{"language": code})
	default:
		respond.Error(c, http.StatusBadRequest, "unknown_action", "unknown translate action", map[string]any{
			"action": req.Action,
		})
	}
}

func (h *Handler) languages(c *gin.Context) {
	respond.OK(c, gin.H{"languages": SupportedLanguages()})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyText):
		respond.Error(c, http.StatusBadRequest, "empty_text", "text is required", nil)
	case errors.Is(err, ErrUnsupportedLanguage):
		respond.Error(c, http.StatusBadRequest, "unsupported_language", err.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrDocumentNotReady):
		respond.Error(c, http.StatusConflict, "not_ready", "document analysis is not finished", nil)
	case ai.KindOf(err) == ai.KindQuota:
		respond.Error(c, http.StatusTooManyRequests, "quota_exceeded", "translation quota exceeded, try again later", nil)
	default:
		respond.Error(c, http.StatusBadGateway, "translation_unavailable", "unable to translate right now", nil)
	}
}
