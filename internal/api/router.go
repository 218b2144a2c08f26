package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/api/handlers"
	mw "github.com/Harshitk-cp/dialectic/internal/api/middleware"
	"github.com/Harshitk-cp/dialectic/internal/buildconfig"
	"github.com/Harshitk-cp/dialectic/internal/config"
	"github.com/Harshitk-cp/dialectic/internal/debate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the router. Debate lifecycle belongs to the manager, which the
// caller owns and stops.
type App struct {
	Router    *chi.Mux
	startTime time.Time
}

// NewApp wires the HTTP surface around a debate manager. db may be nil
// when no database is configured; reg may be nil to use the default
// Prometheus registry.
func NewApp(db *pgxpool.Pool, mgr *debate.Manager, logger *zap.Logger, reg *prometheus.Registry) *App {
	r := chi.NewRouter()
	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	var registerer prometheus.Registerer
	metricsHandler := promhttp.Handler()
	if reg != nil {
		registerer = reg
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	httpMetrics := mw.NewHTTPMetrics(registerer)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpMetrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", app.healthHandler(db))
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	debateHandler := handlers.NewDebateHandler(mgr, config.Pace())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/debates", func(r chi.Router) {
			r.Post("/", debateHandler.Create)
			r.Get("/", debateHandler.List)
			r.Route("/{debateID}", func(r chi.Router) {
				r.Get("/", debateHandler.Get)
				r.Delete("/", debateHandler.Cancel)
				r.Get("/watch", debateHandler.Watch)
			})
		})
	})

	return app
}

func (app *App) healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         "ok",
			"version":        buildconfig.Version(),
			"commit":         buildconfig.Commit(),
			"uptime_seconds": time.Since(app.startTime).Seconds(),
		})
	}
}

