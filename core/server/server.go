package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dmitrymomot/messenger/core/logger"
	"github.com/dmitrymomot/messenger/core/metrics"
)

// ConnHandler serves one accepted connection. It owns conn and must close it.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

// ConnHandlerFunc adapts a function to ConnHandler.
type ConnHandlerFunc func(ctx context.Context, conn net.Conn)

// ServeConn calls f(ctx, conn).
func (f ConnHandlerFunc) ServeConn(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

// Server accepts TCP connections and runs a ConnHandler for each in its own
// goroutine. Safe for concurrent use.
type Server struct {
	mu        sync.RWMutex
	addr      string
	listener  net.Listener
	logger    *slog.Logger
	metrics   *metrics.Metrics
	shutdown  time.Duration
	tlsConfig *tls.Config
	running   bool
	stopping  bool
	cancel    context.CancelFunc
	conns     sync.WaitGroup
}

// New creates a new Server with the given address and options.
// Defaults to a 10-second graceful shutdown timeout and a no-op logger.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		logger:   logger.NewNop(),
		shutdown: DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Addr returns the bound address, or nil when the server is not listening.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the address and accepts connections until ctx is canceled or
// Stop is called. A bind failure is returned immediately.
// Cancellation of ctx shuts the server down as Stop does and returns ctx.Err();
// after Stop it returns nil.
func (s *Server) Start(ctx context.Context, handler ConnHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}

	ln, err := s.listen(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	// Connections outlive ctx until Stop cancels them, so Stop can drain them.
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.listener = ln
	s.cancel = cancel
	s.running = true
	s.stopping = false
	hasTLS := s.tlsConfig != nil
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Server listening",
		logger.Addr(ln.Addr().String()),
		slog.Bool("tls", hasTLS),
	)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	err = s.serve(ctx, connCtx, ln, handler)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Canceled without Stop: drain connections the same way.
		if stopErr := s.Stop(); stopErr != nil {
			return errors.Join(ctxErr, stopErr)
		}
		return ctxErr
	}
	return err
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListen, s.addr, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	return ln, nil
}

// serve runs the accept loop. Temporary errors back off from 5ms up to 1s.
func (s *Server) serve(ctx, connCtx context.Context, ln net.Listener, handler ConnHandler) error {
	var delay time.Duration

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isStopping() || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.metrics.AcceptError()
			delay = nextDelay(delay)

			// Non-timeout failures such as EMFILE back off as well.
			level := slog.LevelError
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				level = slog.LevelWarn
			}
			s.logger.LogAttrs(ctx, level, "Accept failed, retrying",
				logger.Error(err),
				logger.Duration(delay),
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		delay = 0
		s.conns.Add(1)
		go s.handle(connCtx, conn, handler)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn, handler ConnHandler) {
	defer s.conns.Done()
	defer func() {
		if r := recover(); r != nil {
			_ = conn.Close()
			s.logger.ErrorContext(ctx, "Connection handler panicked",
				logger.RemoteAddr(conn.RemoteAddr()),
				slog.Any("panic", r),
				logger.Stack(),
			)
		}
	}()

	handler.ServeConn(ctx, conn)
}

func nextDelay(d time.Duration) time.Duration {
	if d == 0 {
		return MinAcceptBackoff
	}
	d *= 2
	if d > MaxAcceptBackoff {
		return MaxAcceptBackoff
	}
	return d
}

func (s *Server) isStopping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopping
}

// Stop closes the listener, cancels connection contexts and waits up to the
// shutdown timeout for handlers to return.
// Returns immediately if the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	s.running = false
	ln, cancel, timeout := s.listener, s.cancel, s.shutdown
	s.mu.Unlock()

	s.logger.Info("Shutting down server", logger.Duration(timeout))

	err := ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Error("Server shutdown timed out", logger.Duration(timeout))
		return ErrShutdownTimeout
	}

	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Server shutdown error", logger.Error(err))
		return err
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// Returns a function that starts the server, monitors context cancellation,
// and performs graceful shutdown when the context is cancelled.
func (s *Server) Run(ctx context.Context, handler ConnHandler) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx, handler)
		}()

		select {
		case <-ctx.Done():
			if stopErr := s.Stop(); stopErr != nil {
				s.logger.Error("Failed to stop server during context cancellation", logger.Error(stopErr))
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

// Run is a convenience function that creates and runs a server with default settings.
func Run(ctx context.Context, addr string, handler ConnHandler) error {
	return New(addr).Start(ctx, handler)
}
