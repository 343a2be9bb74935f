package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/chat"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/services/health"
	"legaldocs-backend/internal/shared/config"
	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/server/middleware"
	"legaldocs-backend/internal/transcribe"
	"legaldocs-backend/internal/translation"
)

// Routes collects the handlers registered on the API surface.
type Routes struct {
	Config      config.Config
	Documents   *documents.Handler
	Chat        *chat.Handler
	Translation *translation.Handler
	Transcribe  *transcribe.Handler
	Health      *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(rt Routes) *gin.Engine {
	if rt.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(rt.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"UPLOAD":  {Rate: 0.5, Burst: 5},
				"DEFAULT": {Rate: 10, Burst: 30},
			},
			GroupFor: uploadGroup,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if rt.Health != nil {
		rt.Health.RegisterRoutes(api)
	}
	if rt.Documents != nil {
		rt.Documents.RegisterRoutes(api)
	}
	if rt.Chat != nil {
		rt.Chat.RegisterRoutes(api)
	}
	if rt.Translation != nil {
		rt.Translation.RegisterRoutes(api)
	}
	if rt.Transcribe != nil {
		rt.Transcribe.RegisterRoutes(api)
	}

	return r
}

// uploadGroup rates the expensive AI-backed writes separately from reads.
func uploadGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost {
		return "UPLOAD"
	}
	return "DEFAULT"
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
