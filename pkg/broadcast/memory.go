package broadcast

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity is the per-subscriber queue size used when none is given.
const DefaultCapacity = 256

// MemoryBroadcaster is an in-process Broadcaster.
//
// Broadcasts are serialized, so every subscriber observes the same relative
// order. Each subscriber has a bounded queue; when it is full the oldest entry
// is dropped for that subscriber only and reported as a *LagError.
type MemoryBroadcaster[T any] struct {
	mu       sync.Mutex
	subs     map[*memorySubscriber[T]]struct{}
	capacity int
	closed   bool
}

// NewMemoryBroadcaster creates a broadcaster with the given per-subscriber capacity.
// Non-positive capacity falls back to DefaultCapacity.
func NewMemoryBroadcaster[T any](capacity int) *MemoryBroadcaster[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryBroadcaster[T]{
		subs:     make(map[*memorySubscriber[T]]struct{}),
		capacity: capacity,
	}
}

// Broadcast implements Broadcaster.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	for s := range b.subs {
		s.push(msg)
	}
	return nil
}

// Subscribe implements Broadcaster. Subscribing to a closed broadcaster returns
// a subscriber that immediately reports ErrBroadcasterClosed.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	s := &memorySubscriber[T]{
		bus:   b,
		queue: make([]Message[T], b.capacity),
		ready: make(chan struct{}, 1),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.finish(ErrBroadcasterClosed)
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	if ctx.Done() != nil {
		s.stop = context.AfterFunc(ctx, func() { _ = s.Close() })
	}
	return s
}

// Close implements Broadcaster. Calling Close more than once is a no-op.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for s := range b.subs {
		s.finish(ErrBroadcasterClosed)
	}
	b.subs = nil
	return nil
}

// Len returns the number of registered subscribers.
func (b *MemoryBroadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Closed reports whether Close has been called.
func (b *MemoryBroadcaster[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *MemoryBroadcaster[T]) remove(s *memorySubscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// memorySubscriber keeps a ring buffer of pending messages.
type memorySubscriber[T any] struct {
	bus   *MemoryBroadcaster[T]
	ready chan struct{}
	stop  func() bool
	once  sync.Once

	mu      sync.Mutex
	queue   []Message[T]
	head    int
	size    int
	lagged  uint64
	dropped uint64
	err     error
}

func (s *memorySubscriber[T]) push(msg Message[T]) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	if s.size == len(s.queue) {
		var zero Message[T]
		s.queue[s.head] = zero
		s.head = (s.head + 1) % len(s.queue)
		s.size--
		s.lagged++
		s.dropped++
	}
	s.queue[(s.head+s.size)%len(s.queue)] = msg
	s.size++
	s.mu.Unlock()

	s.signal()
}

// finish marks the subscriber terminated by err; queued messages stay readable.
func (s *memorySubscriber[T]) finish(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	s.signal()
}

func (s *memorySubscriber[T]) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Ready implements Subscriber.
func (s *memorySubscriber[T]) Ready() <-chan struct{} {
	return s.ready
}

// TryReceive implements Subscriber.
func (s *memorySubscriber[T]) TryReceive() (Message[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero Message[T]

	if s.lagged > 0 {
		skipped := s.lagged
		s.lagged = 0
		s.signal()
		return zero, &LagError{Skipped: skipped}
	}

	if s.size > 0 {
		msg := s.queue[s.head]
		s.queue[s.head] = zero
		s.head = (s.head + 1) % len(s.queue)
		s.size--
		if s.size > 0 || s.err != nil {
			s.signal()
		}
		return msg, nil
	}

	if s.err != nil {
		s.signal()
		return zero, s.err
	}
	return zero, ErrEmpty
}

// Receive implements Subscriber.
func (s *memorySubscriber[T]) Receive(ctx context.Context) (Message[T], error) {
	for {
		msg, err := s.TryReceive()
		if !errors.Is(err, ErrEmpty) {
			return msg, err
		}

		select {
		case <-s.ready:
		case <-ctx.Done():
			return msg, ctx.Err()
		}
	}
}

// Dropped returns the total number of messages dropped for this subscriber.
func (s *memorySubscriber[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close implements Subscriber. Pending messages are discarded.
func (s *memorySubscriber[T]) Close() error {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		s.bus.remove(s)

		s.mu.Lock()
		s.err = ErrSubscriberClosed
		clear(s.queue)
		s.head, s.size, s.lagged = 0, 0, 0
		s.mu.Unlock()

		s.signal()
	})
	return nil
}
