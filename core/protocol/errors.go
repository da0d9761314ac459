package protocol

import "errors"

var (
	// ErrIncomplete is returned when the buffer does not hold a complete frame yet.
	// No bytes are consumed; retry once more data has arrived.
	ErrIncomplete = errors.New("incomplete frame")

	// ErrInvalidUTF8 is returned when a topic or string is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8 string")

	// ErrNegativeLength is returned when a frame declares a negative payload length.
	ErrNegativeLength = errors.New("negative payload length")

	// ErrTopicTooLong is returned when a topic does not fit in the 16-bit length prefix.
	ErrTopicTooLong = errors.New("topic exceeds 65535 bytes")

	// ErrPayloadTooLarge is returned when a payload exceeds the encodable or configured limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrMalformedControl is returned when a control message carries an unreadable payload.
	ErrMalformedControl = errors.New("malformed control message")
)
