package server

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/dmitrymomot/messenger/core/metrics"
)

// Option configures server behavior.
type Option func(*Server)

// WithTLS wraps the listener with TLS.
func WithTLS(config *tls.Config) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tlsConfig = config
	}
}

// WithLogger sets a custom logger for server operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShutdownTimeout sets the maximum time to wait for connection handlers on Stop.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown = timeout
	}
}

// WithMetrics records accept errors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.metrics = m
	}
}
