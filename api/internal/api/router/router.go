// api/internal/api/router/router.go
package router

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/irgordon/vigil/api/internal/api/handlers"
	vigil_middleware "github.com/irgordon/vigil/api/internal/api/middleware"
)

// Listener names used for logging and the request metrics label.
const (
	ListenerAPI          = "api"
	ListenerOrchestrator = "orchestrator"
)

// 🛡️ Form posts are tiny; anything over 64 KiB is abuse.
const maxFormBytes = 64 << 10

// RouterConfig defines the strict dependencies required to build the data-plane routing tree.
type RouterConfig struct {
	AllowedOrigins   []string
	RequestTimeout   time.Duration
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   *handlers.MetricsHandler
	DashboardHandler *handlers.DashboardHandler
	SysInfoHandler   *handlers.SysInfoHandler
	LogHandler       *handlers.LogHandler
	SaveLimiter      *vigil_middleware.RateLimiter
	Observer         vigil_middleware.RequestObserver
	Logger           *slog.Logger
}

// NewRouter constructs the data-plane Chi multiplexer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(vigil_middleware.StructuredLogger(cfg.Logger.With(slog.String("listener", ListenerAPI))))
	if cfg.Observer != nil {
		r.Use(vigil_middleware.Instrument(ListenerAPI, cfg.Observer))
	}
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// =========================================================================
	// 2. Request/Response Routes (bounded by the request timeout)
	// =========================================================================

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeoutOrDefault(cfg.RequestTimeout)))

		r.Get("/api/health", cfg.HealthHandler.Check)
		r.Get("/api/metrics", cfg.MetricsHandler.Serve)
		r.Get("/api/sysinfo", cfg.SysInfoHandler.Get)
		r.Get("/api/logs", cfg.LogHandler.List)

		r.Get("/dashboard", cfg.DashboardHandler.Page)

		save := r.With(vigil_middleware.MaxBytes(maxFormBytes))
		if cfg.SaveLimiter != nil {
			save = save.With(cfg.SaveLimiter.Limit)
		}
		save.Post("/dashboard/save", cfg.DashboardHandler.Save)
	})

	// =========================================================================
	// 3. Long-lived Streams (no request timeout)
	// =========================================================================

	r.Get("/api/logs/stream", cfg.LogHandler.Stream)

	return r
}

// OrchestratorConfig holds the control-plane dependencies.
type OrchestratorConfig struct {
	HealthHandler *handlers.HealthHandler
	Observer      vigil_middleware.RequestObserver
	Logger        *slog.Logger
}

// NewOrchestratorRouter builds the control-plane multiplexer: a single heartbeat route.
func NewOrchestratorRouter(cfg OrchestratorConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(vigil_middleware.StructuredLogger(cfg.Logger.With(slog.String("listener", ListenerOrchestrator))))
	if cfg.Observer != nil {
		r.Use(vigil_middleware.Instrument(ListenerOrchestrator, cfg.Observer))
	}
	r.Use(middleware.Recoverer)

	r.Get("/status", cfg.HealthHandler.Check)

	return r
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
