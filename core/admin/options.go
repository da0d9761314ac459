package admin

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/messenger/core/health"
	"github.com/dmitrymomot/messenger/core/server"
	"github.com/dmitrymomot/messenger/core/session"
	"github.com/dmitrymomot/messenger/core/wsconn"
)

// Option configures the admin server.
type Option func(*Server)

// WithLogger sets the logger for lifecycle and request records.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithGatherer serves g on /metrics. Without it /metrics is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithReadiness adds checks to /health/ready.
func WithReadiness(checks ...health.CheckFunc) Option {
	return func(s *Server) {
		s.checks = append(s.checks, checks...)
	}
}

// WithDirectory serves the active client list on /clients.
func WithDirectory(d *session.Directory) Option {
	return func(s *Server) {
		s.directory = d
	}
}

// WithWebSocket mounts the WebSocket gateway on /ws, served by h.
func WithWebSocket(h server.ConnHandler, opts ...wsconn.Option) Option {
	return func(s *Server) {
		s.ws = h
		s.wsOpts = opts
	}
}

// WithReadHeaderTimeout bounds slow request headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readHeaderTimeout = d
	}
}

// WithShutdownTimeout sets the maximum time to wait for graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdown = d
	}
}
