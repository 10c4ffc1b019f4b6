package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/process-engine/internal/adapters/http/handlers"
	"github.com/jsamuelsen/process-engine/internal/adapters/http/middleware"
	"github.com/jsamuelsen/process-engine/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger becomes the context logger of every request.
	Logger *slog.Logger

	// ServiceName names the spans and HTTP metrics.
	ServiceName string

	HealthHandler *handlers.HealthHandler
	EngineHandler *handlers.EngineHandler

	// Timeout is the deadline applied to /api/v1 requests. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Diagnostics - request logger and a per-request MDC
//  3. Request ID - generate/extract request ID
//  4. OpenTelemetry - server span, then HTTP metrics
//  5. Logging - request logging (skips health endpoints)
//  6. Timeout - request deadline on /api/v1
//
// Route groups:
//   - /-/ (internal): probes, build info and metrics
//   - /api/v1/: the process API
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine.Use(
		middleware.Recovery(),
		middleware.Diagnostics(logger),
		middleware.RequestID(),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.Middleware(),
		middleware.Logging(),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine.Group("/-"))
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.EngineHandler != nil {
		cfg.EngineHandler.RegisterRoutes(apiV1)
	}
}
