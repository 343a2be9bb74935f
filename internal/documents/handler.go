package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/server/respond"
	"legaldocs-backend/internal/shared/telemetry"
	"legaldocs-backend/internal/validation"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc       *Service
	Validator *validation.Pipeline
	MaxBytes  int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, validator *validation.Pipeline, maxBytes int64) *Handler {
	return &Handler{Svc: svc, Validator: validator, MaxBytes: maxBytes}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.POST("/documents/test", h.createTest)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents", h.list)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes+4096)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.MaxBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")

	result, err := h.Validator.Validate(c.Request.Context(), data, fileHeader.Filename, mimeType)
	if err != nil {
		metrics.IncValidation("rejected")
		switch {
		case errors.Is(err, validation.ErrEmptyFile):
			respond.Error(c, http.StatusBadRequest, "empty_file", result.Message, nil)
		case errors.Is(err, validation.ErrTooLarge):
			respond.Error(c, http.StatusBadRequest, "file_too_large", result.Message, nil)
		case errors.Is(err, validation.ErrUnsupportedFormat):
			respond.Error(c, http.StatusBadRequest, "unsupported_format", result.Message, nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "validation_failed", "unable to validate document", nil)
		}
		return
	}
	if !result.IsValid {
		metrics.IncValidation("rejected")
		respond.Error(c, http.StatusUnprocessableEntity, "not_legal_document", result.Message, map[string]any{
			"confidence": result.Confidence,
		})
		return
	}
	metrics.IncValidation("accepted")

	doc, err := h.Svc.Admit(c.Request.Context(), data, fileHeader.Filename, mimeType, result.ExtractedText)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "admission_failed", "unable to store document", nil)
		return
	}

	if err := h.Svc.StartAnalysis(c.Request.Context(), doc.ID); err != nil {
		telemetry.Warn("document.analysis_start_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}

	respond.Accepted(c, AdmissionResponse{
		DocumentID:   doc.ID,
		Status:       doc.Status,
		DocumentType: result.DocumentType,
		Confidence:   result.Confidence,
		Message:      "document accepted; analysis is in progress",
	})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "fetch_failed", "unable to fetch document", nil)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 20)
	offset := parseIntDefault(c.Query("offset"), 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "list_failed", "unable to list documents", nil)
		return
	}

	items := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, toResponse(d))
	}
	respond.OK(c, gin.H{"documents": items, "limit": limit, "offset": offset})
}

// createTest seeds a canned analyzed lease so the chat and translation flows
// can be exercised without external services.
func (h *Handler) createTest(c *gin.Context) {
	doc, err := h.Svc.CreateTestDocument(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "seed_failed", "unable to create test document", nil)
		return
	}
	respond.OK(c, toResponse(doc))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
