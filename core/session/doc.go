// Package session serves a single broker connection.
//
// A connection first announces its name as a length-prefixed string. After that
// the Handler runs one loop per connection that waits on four sources at once:
// frames decoded from the client, messages from the broadcast bus, the idle
// timer and the server context. Whichever is ready first is handled, then the
// idle timer starts over.
//
// Client frames are classified with protocol.Parse:
//
//   - _Heartbeat is echoed back as an empty _Heartbeat frame.
//   - _Listen and _Unlisten edit the connection's subscription registry.
//   - _Disconnect ends the connection without error.
//   - Messenger:GetClients is answered with Messenger:Clients to the requester only.
//   - Anything else is published to the bus, including back to the sender.
//
// Bus messages are written to the client only when the registry matches their
// topic. A subscriber that falls behind loses the oldest queued messages; the
// loss is logged and the connection keeps going.
//
// Basic usage:
//
//	bus := broadcast.NewMemoryBroadcaster[protocol.Message](256)
//	h, err := session.NewHandler(bus,
//		session.WithLogger(log),
//		session.WithMetrics(m),
//		session.WithEvents(true),
//	)
//	if err != nil {
//		return err
//	}
//	go h.ServeConn(ctx, conn)
//
// Serve returns nil after _Disconnect, ErrIdleTimeout after 5 seconds without
// traffic, ErrConnectionClosed when the stream ends abruptly and ErrProtocol on
// undecodable input.
package session
