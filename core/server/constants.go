package server

import "time"

const (
	// DefaultAddr is the broker's well-known port.
	DefaultAddr = ":5805"

	// DefaultShutdownTimeout is the default time Stop waits for connection handlers.
	DefaultShutdownTimeout = 10 * time.Second

	// MinAcceptBackoff is the first delay after a failed accept.
	MinAcceptBackoff = 5 * time.Millisecond

	// MaxAcceptBackoff caps the doubling accept delay.
	MaxAcceptBackoff = time.Second
)
