package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/shared/server/respond"
)

// Handler wires the chat engine to HTTP.
type Handler struct {
	Engine *Engine
}

// NewHandler constructs a Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/chat", h.ask)
}

type askRequest struct {
	Text string `json:"text"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	answer, err := h.Engine.Ask(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyQuery):
			respond.Error(c, http.StatusBadRequest, "empty_query", "text is required", nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrDocumentNotReady):
			respond.Error(c, http.StatusConflict, "not_ready", "document analysis is not finished", nil)
		case ai.KindOf(err) == ai.KindQuota:
			respond.Error(c, http.StatusTooManyRequests, "quota_exceeded", "chat quota exceeded, try again later", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "chat_unavailable", "unable to answer right now", nil)
		}
		return
	}

	respond.OK(c, answer)
}
