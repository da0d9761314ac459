package messenger

import (
	"github.com/dmitrymomot/messenger/core/admin"
	"github.com/dmitrymomot/messenger/core/server"
	"github.com/dmitrymomot/messenger/core/session"
)

type Config struct {
	Server server.Config
	Admin  admin.Config

	QueueSize      int  `env:"MESSENGER_QUEUE_SIZE" envDefault:"256"`
	MaxPayloadSize int  `env:"MESSENGER_MAX_PAYLOAD_SIZE" envDefault:"16777216"`
	PublishEvents  bool `env:"MESSENGER_PUBLISH_EVENTS" envDefault:"false"`

	AppName  string `env:"APP_NAME" envDefault:"messenger"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`
}

// DefaultConfig mirrors the environment defaults.
func DefaultConfig() Config {
	return Config{
		Server:         server.DefaultConfig(),
		Admin:          admin.DefaultConfig(),
		QueueSize:      256,
		MaxPayloadSize: session.DefaultMaxPayloadSize,
		PublishEvents:  false,
		AppName:        "messenger",
		Env:            "development",
	}
}
