package admin

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/messenger/core/health"
	"github.com/dmitrymomot/messenger/core/logger"
	"github.com/dmitrymomot/messenger/core/server"
	"github.com/dmitrymomot/messenger/core/session"
	"github.com/dmitrymomot/messenger/core/wsconn"
)

// Server is the operations HTTP server: health probes, Prometheus metrics,
// the client list and the optional WebSocket gateway.
type Server struct {
	mu                sync.Mutex
	addr              string
	logger            *slog.Logger
	gatherer          prometheus.Gatherer
	checks            []health.CheckFunc
	directory         *session.Directory
	ws                server.ConnHandler
	wsOpts            []wsconn.Option
	readHeaderTimeout time.Duration
	shutdown          time.Duration

	httpServer *http.Server
	listener   net.Listener
	cancel     context.CancelFunc
	sockets    sync.WaitGroup
}

// New creates an admin server listening on addr.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:              addr,
		logger:            logger.NewNop(),
		readHeaderTimeout: DefaultReadHeaderTimeout,
		shutdown:          DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a Server from configuration. The WebSocket gateway is
// mounted only when cfg enables it and ws is non-nil.
func NewFromConfig(cfg Config, ws server.ConnHandler, opts ...Option) (*Server, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}

	configOpts := make([]Option, 0, len(opts)+3)
	if cfg.ReadHeaderTimeout > 0 {
		configOpts = append(configOpts, WithReadHeaderTimeout(cfg.ReadHeaderTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	if cfg.WebSocketEnabled && ws != nil {
		configOpts = append(configOpts, WithWebSocket(ws))
	}
	configOpts = append(configOpts, opts...)

	return New(cfg.Addr, configOpts...), nil
}

// Addr returns the bound address, or nil when the server is not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is canceled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	// WebSocket sessions derive from baseCtx; Stop cancels it after Shutdown.
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Admin server listening", logger.Addr(ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts down the server, then ends WebSocket sessions and
// waits for them within the same timeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, cancel, timeout := s.httpServer, s.cancel, s.shutdown
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.Info("Shutting down admin server", logger.Duration(timeout))

	ctx, done := context.WithTimeout(context.Background(), timeout)
	defer done()

	err := srv.Shutdown(ctx)
	cancel()

	waited := make(chan struct{})
	go func() {
		s.sockets.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		if err == nil {
			err = ErrShutdownTimeout
		}
	}

	if err != nil {
		s.logger.Error("Admin server shutdown error", logger.Error(err))
		return err
	}
	s.logger.Info("Admin server shutdown complete")
	return nil
}

// Run provides errgroup compatibility: it serves until ctx is done, then stops.
func (s *Server) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			if err := s.Stop(); err != nil {
				s.logger.Error("Failed to stop admin server during context cancellation", logger.Error(err))
			}
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
