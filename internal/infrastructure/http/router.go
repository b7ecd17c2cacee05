package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/ports"
	"github.com/audio-transcribe/client/internal/infrastructure/http/handlers"
)

// Dependencies wires the status server.
type Dependencies struct {
	Sessions handlers.SessionSource
	// Pingers are checked by the readiness probe, keyed by display name.
	Pingers map[string]ports.Pinger
	Log     zerolog.Logger
}

// NewRouter builds the Echo instance of the local status server.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// --- Global middleware ---
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(deps.Log))

	// --- Health probes ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(deps.Pingers)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- Session and metrics ---
	sessionHandler := handlers.NewSessionHandler(deps.Sessions)
	e.GET("/session", sessionHandler.Get)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// requestLogger routes access logs through zerolog so they never reach the
// terminal the dashboard draws on.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("status request")
			return nil
		},
	})
}
