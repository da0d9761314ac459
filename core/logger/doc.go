// Package logger provides structured logging utilities built on Go's standard slog package.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/messenger/core/logger"
//
//	log := logger.New(
//		logger.WithDevelopment("messenger"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("Listener started",
//		logger.Component("server"),
//		logger.Addr(":5805"),
//	)
//
// # Environment Configurations
//
//	// Development: text format, debug level, stdout
//	devLogger := logger.New(logger.WithDevelopment("messenger"))
//
//	// Production: JSON format, info level, stdout
//	prodLogger := logger.New(logger.WithProduction("messenger"))
//
//	// Picked from configuration
//	log := logger.New(logger.WithEnvironment(cfg.Env, cfg.AppName))
//
// # Attribute Helpers
//
// Helpers keep attribute keys consistent across the broker. Helpers that take a
// possibly empty value return an empty slog.Attr, which slog drops:
//
//	log.Warn("Client timed out",
//		logger.ConnID(id),
//		logger.Client(name),
//		logger.RemoteAddr(conn.RemoteAddr()),
//		logger.Error(err), // nil-safe
//	)
//
// # Testing with Custom Output
//
//	var buf bytes.Buffer
//	log := logger.New(
//		logger.WithJSONFormatter(),
//		logger.WithOutput(&buf),
//	)
//
// Components that accept a *slog.Logger default to NewNop, so tests only wire a
// logger when they assert on its output.
package logger
