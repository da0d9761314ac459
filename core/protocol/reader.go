package protocol

import (
	"errors"
	"io"
)

const defaultReaderBufferSize = 4096

// Reader decodes frames from a byte stream that may deliver them in arbitrary
// fragments. It is not safe for concurrent use.
type Reader struct {
	src        io.Reader
	buf        []byte
	start, end int
	err        error
	maxPayload int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayloadSize rejects frames whose declared payload exceeds n bytes
// before any of the payload is buffered. Zero or negative disables the limit.
func WithMaxPayloadSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxPayload = n
		}
	}
}

// WithBufferSize sets the initial read buffer size. The buffer still grows to
// fit larger frames.
func WithBufferSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.buf = make([]byte, n)
		}
	}
}

// NewReader returns a Reader decoding frames from src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{src: src}
	for _, opt := range opts {
		opt(r)
	}
	if r.buf == nil {
		r.buf = make([]byte, defaultReaderBufferSize)
	}
	return r
}

// ReadMessage returns the next complete frame.
// It returns io.EOF when the stream ends on a frame boundary and
// io.ErrUnexpectedEOF when it ends inside a frame.
func (r *Reader) ReadMessage() (Message, error) {
	for {
		if r.end > r.start {
			msg, n, err := decode(r.buf[r.start:r.end], r.maxPayload)
			if err == nil {
				r.start += n
				if r.start == r.end {
					r.start, r.end = 0, 0
				}
				return msg, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				return Message{}, err
			}
		}

		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) && r.end > r.start {
				return Message{}, io.ErrUnexpectedEOF
			}
			return Message{}, err
		}
	}
}

// Buffered returns the number of bytes read from the stream but not yet decoded.
func (r *Reader) Buffered() int {
	return r.end - r.start
}

// fill reads at least once from the source, compacting the buffer and growing
// it when full.
func (r *Reader) fill() error {
	if r.err != nil {
		err := r.err
		r.err = nil
		return err
	}

	if r.start > 0 {
		copy(r.buf, r.buf[r.start:r.end])
		r.end -= r.start
		r.start = 0
	}

	if r.end == len(r.buf) {
		// Grow with the bytes actually received, never straight to a declared size.
		size := 2 * len(r.buf)
		if need := frameLen(r.buf[:r.end]); need > r.end {
			size = min(size, need)
		}
		grown := make([]byte, size)
		copy(grown, r.buf[:r.end])
		r.buf = grown
	}

	n, err := r.src.Read(r.buf[r.end:])
	r.end += n
	if n > 0 {
		// Hand out what arrived first; the error surfaces on the next fill.
		r.err = err
		return nil
	}
	return err
}
