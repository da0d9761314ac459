package session

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/messenger/core/metrics"
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for connection lifecycle records.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock sets the clock driving the idle window. Tests pass a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithMetrics enables Prometheus recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithDirectory shares a client directory, e.g. with the admin server.
func WithDirectory(d *Directory) Option {
	return func(h *Handler) {
		if d != nil {
			h.directory = d
		}
	}
}

// WithMaxPayloadSize rejects inbound frames with larger payloads as protocol errors.
// Defaults to DefaultMaxPayloadSize.
func WithMaxPayloadSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxPayload = n
		}
	}
}

// WithWriteTimeout bounds each socket write on connections that support deadlines.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithEvents toggles publishing of Messenger:Event connect and disconnect messages.
func WithEvents(enabled bool) Option {
	return func(h *Handler) {
		h.publishEvents = enabled
	}
}
