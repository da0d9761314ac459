package session

import "errors"

var (
	// ErrIdleTimeout is returned when neither the client nor the bus produced
	// anything within the idle window.
	ErrIdleTimeout = errors.New("connection idle timeout")

	// ErrConnectionClosed is returned when the client's stream ended without a
	// _Disconnect request.
	ErrConnectionClosed = errors.New("connection closed by peer")

	// ErrProtocol wraps decoding failures of client input.
	ErrProtocol = errors.New("protocol error")

	// ErrBusClosed is returned when the broadcast bus shut down.
	ErrBusClosed = errors.New("broadcast bus closed")

	// ErrNilBroadcaster is returned by NewHandler without a bus.
	ErrNilBroadcaster = errors.New("broadcaster is required")

	// errDisconnect signals a graceful _Disconnect inside the loop.
	errDisconnect = errors.New("client requested disconnect")
)
