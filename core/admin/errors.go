package admin

import "errors"

var (
	ErrMissingAddress       = errors.New("admin address is required")
	ErrServerAlreadyRunning = errors.New("admin server is already running")
	ErrShutdownTimeout      = errors.New("timed out waiting for websocket connections to close")
)
