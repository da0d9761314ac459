// Package server provides the broker's TCP listener: an accept loop that runs a
// ConnHandler per connection in its own goroutine, with optional TLS and
// graceful shutdown.
//
// # Basic Usage
//
//	srv := server.New(":5805",
//		server.WithLogger(log),
//		server.WithShutdownTimeout(10*time.Second),
//	)
//
//	if err := srv.Start(ctx, handler); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Start binds once and returns the bind error immediately. Accept failures
// are logged and retried with a backoff that starts at 5ms and doubles up to
// one second, so a burst of errors never ends the loop. A panic in a
// handler is recovered and logged with its stack; the listener keeps going.
//
// # Configuration
//
// Config is loaded from the environment with core/config:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//
// MESSENGER_TLS_CERT_FILE and MESSENGER_TLS_KEY_FILE together enable TLS
// using DefaultTLSConfig as the baseline.
//
// # Lifecycle
//
// Stop closes the listener, cancels the context passed to every handler and
// waits up to the shutdown timeout for them to return. Run adapts the server
// to errgroup:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, handler))
//	return g.Wait()
package server
