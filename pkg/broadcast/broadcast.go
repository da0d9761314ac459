package broadcast

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBroadcasterClosed is returned by Broadcast after Close, and by a
	// subscriber once the broadcaster closed and its queue is drained.
	ErrBroadcasterClosed = errors.New("broadcaster is closed")

	// ErrSubscriberClosed is returned by a subscriber after its own Close.
	ErrSubscriberClosed = errors.New("subscriber is closed")

	// ErrEmpty is returned by TryReceive when nothing is queued.
	ErrEmpty = errors.New("no message queued")

	// ErrLagged matches any *LagError via errors.Is.
	ErrLagged = errors.New("subscriber lagged")
)

// LagError reports messages dropped for a subscriber whose queue overflowed.
// It is recoverable: the next receive continues with the oldest message still queued.
type LagError struct {
	Skipped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber lagged: %d messages skipped", e.Skipped)
}

// Is makes errors.Is(err, ErrLagged) true for any *LagError.
func (e *LagError) Is(target error) bool {
	return target == ErrLagged
}

// Message wraps broadcast data.
type Message[T any] struct {
	Data T
}

// Broadcaster sends messages to every current subscriber.
type Broadcaster[T any] interface {
	// Broadcast delivers msg to every subscriber without blocking on slow ones.
	Broadcast(ctx context.Context, msg Message[T]) error

	// Subscribe registers a receiver for all messages broadcast from now on.
	// The subscription ends when ctx is cancelled or the subscriber is closed.
	Subscribe(ctx context.Context) Subscriber[T]

	// Close stops the broadcaster. Subscribers drain their queues and then
	// observe ErrBroadcasterClosed.
	Close() error
}

// Subscriber receives broadcast messages.
type Subscriber[T any] interface {
	// Ready is signalled when TryReceive may have something to return.
	// Use it in a select next to other event sources.
	Ready() <-chan struct{}

	// TryReceive returns the next queued message without blocking.
	// Errors: ErrEmpty, *LagError, ErrBroadcasterClosed, ErrSubscriberClosed.
	TryReceive() (Message[T], error)

	// Receive blocks until a message, a lag report, a terminal error or ctx cancellation.
	Receive(ctx context.Context) (Message[T], error)

	// Close deregisters the subscriber. Safe to call more than once.
	Close() error
}
