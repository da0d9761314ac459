package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// PackString encodes s in the simple [u16 len][bytes] sub-format used for the
// connection preamble and control payloads.
func PackString(s string) ([]byte, error) {
	return AppendString(make([]byte, 0, topicLenSize+len(s)), s)
}

// MustPackString is like PackString but panics on error.
func MustPackString(s string) []byte {
	b, err := PackString(s)
	if err != nil {
		panic(fmt.Sprintf("protocol: pack string: %v", err))
	}
	return b
}

// AppendString appends the [u16 len][bytes] encoding of s to dst.
func AppendString(dst []byte, s string) ([]byte, error) {
	if len(s) > MaxTopicLen {
		return dst, ErrTopicTooLong
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...), nil
}

// UnpackString decodes a [u16 len][bytes] string from the front of data and
// returns it with the number of bytes consumed. Trailing bytes are ignored.
func UnpackString(data []byte) (string, int, error) {
	if len(data) < topicLenSize {
		return "", 0, ErrIncomplete
	}
	n := int(binary.BigEndian.Uint16(data))
	if len(data) < topicLenSize+n {
		return "", 0, ErrIncomplete
	}
	raw := data[topicLenSize : topicLenSize+n]
	if !utf8.Valid(raw) {
		return "", 0, ErrInvalidUTF8
	}
	return string(raw), topicLenSize + n, nil
}

// ReadString reads exactly one [u16 len][bytes] string from r.
// A stream that ends before the string is complete yields io.ErrUnexpectedEOF,
// or io.EOF when nothing was read at all.
func ReadString(r io.Reader) (string, error) {
	var prefix [topicLenSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return "", err
	}

	buf := make([]byte, binary.BigEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}
