package client

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithTLS dials with TLS.
func WithTLS(cfg *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = cfg
	}
}

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

// WithHeartbeat sends _Heartbeat every interval so an otherwise quiet client
// stays inside the broker's idle window. Zero disables it.
func WithHeartbeat(interval time.Duration) Option {
	return func(c *Client) {
		c.heartbeat = interval
	}
}

// WithMaxPayloadSize rejects inbound frames with larger payloads.
func WithMaxPayloadSize(n int) Option {
	return func(c *Client) {
		c.maxPayload = n
	}
}

// WithLogger sets the logger for background heartbeat failures.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}
