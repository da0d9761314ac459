package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler used by New.
type Format int

const (
	// TextFormat uses slog.TextHandler.
	TextFormat Format = iota
	// JSONFormat uses slog.JSONHandler.
	JSONFormat
)

type options struct {
	level          slog.Level
	format         Format
	output         io.Writer
	attrs          []slog.Attr
	handlerOptions *slog.HandlerOptions
}

// Option configures New.
type Option func(*options)

// New builds a *slog.Logger. Without options it writes text at Info level to stdout.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: TextFormat,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	ho := o.handlerOptions
	if ho == nil {
		ho = &slog.HandlerOptions{Level: o.level}
	}

	var h slog.Handler
	switch o.format {
	case JSONFormat:
		h = slog.NewJSONHandler(o.output, ho)
	default:
		h = slog.NewTextHandler(o.output, ho)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	return slog.New(h)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetAsDefault installs log as the slog default logger.
func SetAsDefault(log *slog.Logger) {
	if log != nil {
		slog.SetDefault(log)
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithJSONFormatter switches output to JSON.
func WithJSONFormatter() Option {
	return func(o *options) { o.format = JSONFormat }
}

// WithTextFormatter switches output to logfmt-style text.
func WithTextFormatter() Option {
	return func(o *options) { o.format = TextFormat }
}

// WithOutput sets the destination writer. Nil is ignored.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithHandlerOptions replaces the handler options entirely, including the level.
func WithHandlerOptions(ho *slog.HandlerOptions) Option {
	return func(o *options) { o.handlerOptions = ho }
}

// WithDevelopment configures text output at Debug level tagged with the service name.
func WithDevelopment(service string) Option {
	return environment(service, "development", slog.LevelDebug, TextFormat)
}

// WithStaging configures JSON output at Info level tagged with the service name.
func WithStaging(service string) Option {
	return environment(service, "staging", slog.LevelInfo, JSONFormat)
}

// WithProduction configures JSON output at Info level tagged with the service name.
func WithProduction(service string) Option {
	return environment(service, "production", slog.LevelInfo, JSONFormat)
}

// WithEnvironment picks WithDevelopment, WithStaging or WithProduction by name.
// Unknown names fall back to development.
func WithEnvironment(env, service string) Option {
	switch strings.ToLower(env) {
	case "production", "prod":
		return WithProduction(service)
	case "staging", "stage":
		return WithStaging(service)
	default:
		return WithDevelopment(service)
	}
}

func environment(service, env string, level slog.Level, format Format) Option {
	return func(o *options) {
		o.level = level
		o.format = format
		o.attrs = append(o.attrs,
			slog.String("service", service),
			slog.String("env", env),
		)
	}
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a level.
// Anything else yields Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
