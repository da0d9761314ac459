package wsconn

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/messenger/core/logger"
	"github.com/dmitrymomot/messenger/core/server"
)

type config struct {
	upgrader *websocket.Upgrader
	logger   *slog.Logger
}

// Option configures the gateway handler.
type Option func(*config)

// WithReadBuffer sets the upgrader read buffer size.
func WithReadBuffer(size int) Option {
	return func(c *config) {
		c.upgrader.ReadBufferSize = size
	}
}

// WithWriteBuffer sets the upgrader write buffer size.
func WithWriteBuffer(size int) Option {
	return func(c *config) {
		c.upgrader.WriteBufferSize = size
	}
}

// WithHandshakeTimeout bounds the upgrade handshake.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.upgrader.HandshakeTimeout = timeout
	}
}

// WithOriginCheck replaces the same-origin check.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(c *config) {
		c.upgrader.CheckOrigin = fn
	}
}

// WithAllowAnyOrigin accepts upgrades from every origin.
func WithAllowAnyOrigin() Option {
	return WithOriginCheck(func(*http.Request) bool { return true })
}

// WithLogger sets the logger for failed upgrades.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.logger = log
		}
	}
}

// Handler upgrades requests to WebSocket and serves them with h, exactly as
// the TCP listener would serve a socket. The request context is passed on,
// so cancelling the HTTP server's base context ends the connection.
func Handler(h server.ConnHandler, opts ...Option) http.Handler {
	cfg := &config{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := cfg.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			cfg.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
				logger.Error(err),
				logger.Addr(r.RemoteAddr),
			)
			return
		}

		h.ServeConn(r.Context(), New(ws))
	})
}
