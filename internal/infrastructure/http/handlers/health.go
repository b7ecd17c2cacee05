package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/audio-transcribe/client/internal/core/ports"
)

// HealthHandler handles GET /health, the liveness probe.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ReadinessHandler handles GET /health/ready. It pings every named
// dependency; the client is ready when the credential store answers.
type ReadinessHandler struct {
	deps map[string]ports.Pinger
}

func NewReadinessHandler(deps map[string]ports.Pinger) *ReadinessHandler {
	return &ReadinessHandler{deps: deps}
}

const readinessTimeout = 3 * time.Second

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness pings all dependencies in parallel so one slow store does not
// delay the others past the probe deadline.
func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		deps = make(map[string]dependencyStatus, len(h.deps))
	)
	for name, p := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := p.Ping(ctx)
			st := dependencyStatus{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status = "unhealthy"
				st.Error = err.Error()
			}
			mu.Lock()
			deps[name] = st
			mu.Unlock()
		}()
	}
	wg.Wait()

	resp := readinessResponse{Status: "ok", Dependencies: deps}
	for _, d := range deps {
		if d.Status != "ok" {
			resp.Status = "degraded"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
