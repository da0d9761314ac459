package messenger

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/messenger/core/admin"
	"github.com/dmitrymomot/messenger/core/config"
	"github.com/dmitrymomot/messenger/core/health"
	"github.com/dmitrymomot/messenger/core/logger"
	"github.com/dmitrymomot/messenger/core/metrics"
	"github.com/dmitrymomot/messenger/core/protocol"
	"github.com/dmitrymomot/messenger/core/server"
	"github.com/dmitrymomot/messenger/core/session"
	"github.com/dmitrymomot/messenger/pkg/broadcast"
)

var (
	errBusClosed    = errors.New("broadcast bus is closed")
	errNotListening = errors.New("listener is not bound")
)

// App wires the broker: one bus, one connection handler, the TCP listener
// and the optional admin server.
type App struct {
	config   Config
	version  string
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	bus      *broadcast.MemoryBroadcaster[protocol.Message]
	handler  *session.Handler
	server   *server.Server
	admin    *admin.Server
}

type AppOption func(*App) error

func NewApp(opts ...AppOption) (*App, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	app := &App{config: cfg, version: "dev"}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		logOpts := []logger.Option{logger.WithEnvironment(app.config.Env, app.config.AppName)}
		if app.config.LogLevel != "" {
			logOpts = append(logOpts, logger.WithLevel(logger.ParseLevel(app.config.LogLevel)))
		}
		app.logger = logger.New(logOpts...)
	}

	if app.registry == nil {
		app.registry = prometheus.NewRegistry()
		app.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	app.metrics = metrics.New(app.registry)

	app.bus = broadcast.NewMemoryBroadcaster[protocol.Message](app.config.QueueSize)

	h, err := session.NewHandler(app.bus,
		session.WithLogger(app.logger.With(logger.Component("session"))),
		session.WithMetrics(app.metrics),
		session.WithMaxPayloadSize(app.config.MaxPayloadSize),
		session.WithEvents(app.config.PublishEvents),
	)
	if err != nil {
		return nil, err
	}
	app.handler = h

	srv, err := server.NewFromConfig(app.config.Server,
		server.WithLogger(app.logger.With(logger.Component("server"))),
		server.WithMetrics(app.metrics),
	)
	if err != nil {
		return nil, err
	}
	app.server = srv

	if app.config.Admin.Enabled() {
		adm, err := admin.NewFromConfig(app.config.Admin, app.handler,
			admin.WithLogger(app.logger.With(logger.Component("admin"))),
			admin.WithGatherer(app.registry),
			admin.WithDirectory(app.handler.Directory()),
			admin.WithReadiness(
				health.Check("bus", app.busOpen),
				health.Check("listener", app.listening),
			),
		)
		if err != nil {
			return nil, err
		}
		app.admin = adm
	}

	return app, nil
}

// Run serves until ctx is canceled or a server fails, then closes the bus.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "Messenger starting",
		logger.Version(a.version),
		logger.Group("config",
			slog.Int("queue_size", a.config.QueueSize),
			slog.Int("max_payload_size", a.config.MaxPayloadSize),
			slog.Bool("events", a.config.PublishEvents),
			slog.Bool("admin", a.admin != nil),
		),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(a.server.Run(ctx, a.handler))
	if a.admin != nil {
		g.Go(a.admin.Run(ctx))
	}

	runErr := g.Wait()
	closeErr := a.bus.Close()

	if err := errors.Join(runErr, closeErr); err != nil {
		a.logger.Error("Messenger stopped with error", logger.Errors(runErr, closeErr))
		return err
	}
	a.logger.Info("Messenger stopped")
	return nil
}

// Addr returns the bound broker address, or nil before Run binds it.
func (a *App) Addr() net.Addr {
	return a.server.Addr()
}

// AdminAddr returns the bound admin address, or nil when disabled or not yet bound.
func (a *App) AdminAddr() net.Addr {
	if a.admin == nil {
		return nil
	}
	return a.admin.Addr()
}

// Directory returns the active client directory.
func (a *App) Directory() *session.Directory {
	return a.handler.Directory()
}

func (a *App) busOpen(context.Context) error {
	if a.bus.Closed() {
		return errBusClosed
	}
	return nil
}

func (a *App) listening(context.Context) error {
	if a.server.Addr() == nil {
		return errNotListening
	}
	return nil
}

// WithConfig replaces the configuration loaded from the environment.
func WithConfig(cfg Config) AppOption {
	return func(app *App) error {
		app.config = cfg
		return nil
	}
}

func WithLogger(logger *slog.Logger) AppOption {
	return func(app *App) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

// WithVersion sets the build version reported at startup.
func WithVersion(v string) AppOption {
	return func(app *App) error {
		if v != "" {
			app.version = v
		}
		return nil
	}
}

// WithRegistry registers the broker metrics with reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) AppOption {
	return func(app *App) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		app.registry = reg
		return nil
	}
}
