// Package broadcast provides a generic bounded fan-out channel.
//
// Every message passed to Broadcast is queued for every current subscriber.
// Slow consumers never block the publisher or other subscribers: when a
// subscriber's queue is full its oldest entry is dropped and the subscriber
// is told how many messages it missed.
//
// # Architecture
//
// The package defines two main interfaces:
//   - Broadcaster: sends messages to multiple subscribers
//   - Subscriber: receives broadcast messages
//
// MemoryBroadcaster is the in-process implementation.
//
// # Usage
//
//	// Each subscriber may hold up to 256 undelivered messages.
//	bus := broadcast.NewMemoryBroadcaster[string](256)
//	defer bus.Close()
//
//	sub := bus.Subscribe(ctx)
//	defer sub.Close()
//
//	_ = bus.Broadcast(ctx, broadcast.Message[string]{Data: "Hello, World!"})
//
//	msg, err := sub.Receive(ctx)
//
// Subscribers expose a Ready channel so they can take part in a select with
// other event sources:
//
//	for {
//		select {
//		case <-sub.Ready():
//			msg, err := sub.TryReceive()
//			switch {
//			case errors.Is(err, broadcast.ErrEmpty):
//				continue
//			case errors.Is(err, broadcast.ErrLagged):
//				// some messages were dropped; keep going
//			case err != nil:
//				return err // closed
//			}
//			handle(msg.Data)
//		case <-ctx.Done():
//			return ctx.Err()
//		}
//	}
//
// # Ordering and lag
//
// Broadcasts are serialized by the broadcaster, so all subscribers that keep up
// see messages in the same order. A subscriber that falls behind loses the
// oldest queued messages first and receives a single *LagError carrying the
// skipped count before delivery resumes.
//
// # Lifecycle
//
// A subscription ends when its context is cancelled or Close is called on it.
// Closing the broadcaster lets subscribers drain what is already queued, after
// which they report ErrBroadcasterClosed.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use across multiple goroutines.
package broadcast
