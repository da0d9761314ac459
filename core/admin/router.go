package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/messenger/core/health"
	"github.com/dmitrymomot/messenger/core/logger"
	"github.com/dmitrymomot/messenger/core/wsconn"
)

// Handler returns the admin router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness(s.logger, s.checks...))
	r.Get("/ping", health.NoContent)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.directory != nil {
		r.Get("/clients", s.clients)
	}
	if s.ws != nil {
		opts := append([]wsconn.Option{wsconn.WithLogger(s.logger)}, s.wsOpts...)
		gateway := wsconn.Handler(s.ws, opts...)
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			s.sockets.Add(1)
			defer s.sockets.Done()
			gateway.ServeHTTP(w, r)
		})
	}

	return r
}

func (s *Server) clients(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.directory.List()); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode client list", logger.Error(err))
	}
}

// requestLogger records one line per request. Probes and scrapes log at Debug.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch r.URL.Path {
			case "/health/live", "/health/ready", "/ping", "/metrics":
				level = slog.LevelDebug
			}
			log.LogAttrs(r.Context(), level, "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				logger.Elapsed(start),
			)
		})
	}
}
