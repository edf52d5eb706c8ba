package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"mercator-hq/lendrules/pkg/config"
	"mercator-hq/lendrules/pkg/telemetry/health"
	"mercator-hq/lendrules/pkg/telemetry/tracing"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if c := s.config.CORS; c.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: c.AllowedOrigins,
			AllowedMethods: c.AllowedMethods,
			AllowedHeaders: c.AllowedHeaders,
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         c.MaxAge,
		}))
	}
	r.Use(tracing.Middleware)

	r.Group(func(r chi.Router) {
		r.Use(s.throttle)
		r.Use(s.limitBody)
		r.Post("/rules", s.createRule)
		r.Post("/rules/preview", s.previewRule)
		r.Post("/evaluate", s.evaluate)
	})
	r.Get("/rules", s.listRules)

	r.Get("/health", s.deps.Health.LivenessHandler())
	r.Get("/ready", s.deps.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.deps.Version, "", ""))
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, s.metricsPath(), s.deps.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path)
	})
	return r
}

func (s *Server) metricsPath() string {
	if s.deps.MetricsPath != "" {
		return s.deps.MetricsPath
	}
	return config.DefaultMetricsPath
}
