// Package wsconn carries the broker protocol over WebSocket.
//
// Conn adapts a gorilla/websocket connection to net.Conn: incoming binary
// messages are concatenated into one byte stream, so a client may split the
// name preamble and frames across messages however it likes. Every Write
// becomes one binary message, and the broker writes whole frames, so each
// outbound frame arrives as exactly one message.
//
// Handler exposes any server.ConnHandler on an HTTP route:
//
//	r.Handle("/ws", wsconn.Handler(sessionHandler, wsconn.WithAllowAnyOrigin()))
package wsconn
