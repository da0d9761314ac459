package admin

import "time"

// Config holds admin server configuration with environment variable support.
type Config struct {
	// Empty disables the admin server.
	Addr string `env:"ADMIN_ADDR" envDefault:":5806"`

	WebSocketEnabled bool `env:"ADMIN_WEBSOCKET_ENABLED" envDefault:"false"`

	ReadHeaderTimeout time.Duration `env:"ADMIN_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"ADMIN_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":5806",
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
	}
}

// Enabled reports whether an address is configured.
func (c Config) Enabled() bool {
	return c.Addr != ""
}

const (
	// DefaultReadHeaderTimeout bounds slow request headers.
	DefaultReadHeaderTimeout = 5 * time.Second

	// DefaultShutdownTimeout is the default graceful shutdown timeout.
	DefaultShutdownTimeout = 10 * time.Second
)
