package transcribe

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/ai"
	"legaldocs-backend/internal/shared/server/respond"
)

// Handler wires speech transcription to HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the transcription route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/transcribe", h.transcribe)
}

type transcribeRequest struct {
	Audio        string `json:"audio"`
	LanguageCode string `json:"languageCode"`
}

func (h *Handler) transcribe(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "audio must be base64 encoded", nil)
		return
	}

	result, err := h.Svc.Transcribe(c.Request.Context(), audio, req.LanguageCode)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyAudio):
			respond.Error(c, http.StatusBadRequest, "empty_audio", "audio is required", nil)
		case errors.Is(err, ErrAudioTooLarge):
			respond.Error(c, http.StatusBadRequest, "audio_too_large", err.Error(), nil)
		case ai.KindOf(err) == ai.KindQuota:
			respond.Error(c, http.StatusTooManyRequests, "quota_exceeded", "transcription quota exceeded, try again later", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "transcription_unavailable", "unable to transcribe right now", nil)
		}
		return
	}

	respond.OK(c, result)
}
