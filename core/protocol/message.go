package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	topicLenSize   = 2
	payloadLenSize = 4
	headerSize     = topicLenSize + payloadLenSize

	// MaxTopicLen is the largest topic the 16-bit length prefix can carry.
	MaxTopicLen = math.MaxUint16

	// MaxPayloadLen is the largest payload the signed 32-bit length field can carry.
	MaxPayloadLen = math.MaxInt32
)

// Message is a single topic-addressed frame.
// Payload is opaque to the broker and must not be mutated once published.
type Message struct {
	Topic   string
	Payload []byte
}

// FrameSize returns the number of bytes Pack produces for m.
func (m Message) FrameSize() int {
	return headerSize + len(m.Topic) + len(m.Payload)
}

// String implements fmt.Stringer for diagnostics.
func (m Message) String() string {
	return fmt.Sprintf("%s (%d bytes)", m.Topic, len(m.Payload))
}

// Pack encodes m as [u16 topic_len][topic][i32 payload_len][payload], big-endian.
func Pack(m Message) ([]byte, error) {
	return AppendPack(make([]byte, 0, m.FrameSize()), m)
}

// MustPack is like Pack but panics on error.
// Intended for frames built from constants.
func MustPack(m Message) []byte {
	b, err := Pack(m)
	if err != nil {
		panic(fmt.Sprintf("protocol: pack %q: %v", m.Topic, err))
	}
	return b
}

// AppendPack appends the frame for m to dst and returns the extended slice.
func AppendPack(dst []byte, m Message) ([]byte, error) {
	if len(m.Topic) > MaxTopicLen {
		return dst, ErrTopicTooLong
	}
	if len(m.Payload) > MaxPayloadLen {
		return dst, ErrPayloadTooLarge
	}

	dst = binary.BigEndian.AppendUint16(dst, uint16(len(m.Topic)))
	dst = append(dst, m.Topic...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(int32(len(m.Payload))))
	dst = append(dst, m.Payload...)
	return dst, nil
}

// Decode extracts the first frame from src.
//
// It returns ErrIncomplete when src does not yet hold the whole frame, in which
// case nothing is consumed. On success n is the exact frame length; the caller
// drops src[:n] and keeps the remainder for the next call. The returned payload
// is a copy and never aliases src.
func Decode(src []byte) (Message, int, error) {
	return decode(src, 0)
}

// decode is Decode with an optional payload limit (0 means no limit beyond int32).
func decode(src []byte, maxPayload int) (Message, int, error) {
	if len(src) < topicLenSize {
		return Message{}, 0, ErrIncomplete
	}

	topicLen := int(binary.BigEndian.Uint16(src))
	if len(src) < headerSize+topicLen {
		return Message{}, 0, ErrIncomplete
	}

	payloadLen := int32(binary.BigEndian.Uint32(src[topicLenSize+topicLen:]))
	if payloadLen < 0 {
		return Message{}, 0, fmt.Errorf("%w: %d", ErrNegativeLength, payloadLen)
	}
	if maxPayload > 0 && int(payloadLen) > maxPayload {
		return Message{}, 0, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, payloadLen, maxPayload)
	}

	n := headerSize + topicLen + int(payloadLen)
	if len(src) < n {
		return Message{}, 0, ErrIncomplete
	}

	topic := src[topicLenSize : topicLenSize+topicLen]
	if !utf8.Valid(topic) {
		return Message{}, 0, ErrInvalidUTF8
	}

	payload := make([]byte, payloadLen)
	copy(payload, src[headerSize+topicLen:n])

	return Message{Topic: string(topic), Payload: payload}, n, nil
}

// frameLen reports how many bytes the frame at the front of src needs in total,
// or 0 when even the length prefixes have not arrived.
func frameLen(src []byte) int {
	if len(src) < topicLenSize {
		return 0
	}
	topicLen := int(binary.BigEndian.Uint16(src))
	if len(src) < headerSize+topicLen {
		return 0
	}
	payloadLen := int32(binary.BigEndian.Uint32(src[topicLenSize+topicLen:]))
	if payloadLen < 0 {
		return 0
	}
	return headerSize + topicLen + int(payloadLen)
}
