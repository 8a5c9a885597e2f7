package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is any dependency that can report its own reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// ReadinessHandler reports whether every backing dependency answers.
type ReadinessHandler struct {
	deps    map[string]Pinger
	timeout time.Duration
}

// NewReadinessHandler constructs the handler. Nil dependencies are skipped.
func NewReadinessHandler(deps map[string]Pinger, timeout time.Duration) *ReadinessHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ReadinessHandler{deps: deps, timeout: timeout}
}

// Ready answers 200 when all dependencies respond and 503 otherwise.
func (h *ReadinessHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	status := http.StatusOK
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.PingContext(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
