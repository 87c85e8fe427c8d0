package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mnemo-ai/mnemo/internal/api/handlers"
	mw "github.com/mnemo-ai/mnemo/internal/api/middleware"
	"github.com/mnemo-ai/mnemo/internal/service"
)

// Options carries the router knobs callers inject instead of reading
// process-wide configuration inside the router.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	// Ping probes the storage backend for the health endpoint. Nil means
	// the service has no backend connection worth probing.
	Ping func(ctx context.Context) error
}

// App holds the assembled HTTP surface.
type App struct {
	Router *chi.Mux
}

func NewApp(svc *service.MemoryService, logger *zap.Logger, opts Options) *App {
	memoryHandler := handlers.NewMemoryHandler(svc)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	r.Get("/health", healthHandler(opts.Ping))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.Create)
			r.Get("/", memoryHandler.List)
			r.Post("/search", memoryHandler.Search)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", memoryHandler.GetByID)
				r.Patch("/", memoryHandler.Update)
				r.Delete("/", memoryHandler.Delete)
			})
		})
	})

	return &App{Router: r}
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
