// Package protocol implements the messenger wire format.
//
// Every message travels as a self-delimiting frame:
//
//	[u16 topic_len][topic_len bytes UTF-8 topic][i32 payload_len][payload_len bytes]
//
// All integers are big-endian. A connection opens with a single preamble in the
// simpler string sub-format, [u16 len][len bytes UTF-8], carrying the client's
// display name. The same sub-format is used inside the payloads of the _Listen
// and _Unlisten control messages.
//
// # Encoding
//
//	frame, err := protocol.Pack(protocol.Message{Topic: "chat", Payload: []byte("hi")})
//	// 00 04 'c' 'h' 'a' 't' 00 00 00 02 'h' 'i'
//
// # Decoding
//
// Decode works on a buffer that may hold a partial frame. It never consumes a
// partial frame:
//
//	msg, n, err := protocol.Decode(buf)
//	switch {
//	case errors.Is(err, protocol.ErrIncomplete):
//		// read more bytes and retry
//	case err != nil:
//		// protocol error, drop the connection
//	default:
//		buf = buf[n:]
//	}
//
// Reader wraps an io.Reader and does the buffering:
//
//	r := protocol.NewReader(conn, protocol.WithMaxPayloadSize(16<<20))
//	for {
//		msg, err := r.ReadMessage()
//		...
//	}
//
// # Control messages
//
// Parse turns a message into a Command. Topics starting with an underscore are
// reserved (_Heartbeat, _Listen, _Unlisten, _Disconnect), as are the
// "Messenger:" topics used for client listing and broker events. Everything
// else is a Publish.
package protocol
