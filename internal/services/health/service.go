package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/shared/server/respond"
)

// Prober reports whether one dependency is usable. Implementations must not
// expose secrets in their error values; only an up/down flag leaves this
// package.
type Prober interface {
	Healthy(ctx context.Context) error
}

// ProbeFunc adapts a plain function to Prober.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Healthy(ctx context.Context) error { return f(ctx) }

// Service runs per-dependency health probes.
type Service struct {
	probes map[string]Prober
}

// NewService constructs a health service with no probes registered.
func NewService() *Service {
	return &Service{probes: map[string]Prober{}}
}

// Register adds a named dependency probe. A nil prober is ignored so callers
// can register optional dependencies unconditionally.
func (s *Service) Register(name string, p Prober) {
	if p == nil {
		return
	}
	s.probes[name] = p
}

// RegisterDB adds a database ping probe.
func (s *Service) RegisterDB(db *sql.DB) {
	if db == nil {
		return
	}
	s.Register("database", ProbeFunc(func(ctx context.Context) error {
		return db.PingContext(ctx)
	}))
}

// Status runs all probes and reports per-dependency booleans. Probe errors
// never reach the payload so credential detail cannot leak.
func (s *Service) Status(ctx context.Context) (bool, map[string]bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	ok := true
	deps := make(map[string]bool, len(s.probes))
	for name, p := range s.probes {
		err := p.Healthy(ctx)
		deps[name] = err == nil
		if err != nil {
			ok = false
		}
	}
	return ok, deps
}

// RegisterRoutes attaches the health route to the router group.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		ok, deps := s.Status(c.Request.Context())
		payload := gin.H{"ok": ok, "dependencies": deps}
		if ok {
			respond.OK(c, payload)
			return
		}
		respond.JSON(c, http.StatusServiceUnavailable, payload)
	})
}
