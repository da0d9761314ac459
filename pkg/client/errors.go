package client

import "errors"

var (
	// ErrClosed is returned by operations on a closed Client.
	ErrClosed = errors.New("client is closed")

	// ErrUnexpectedReply is returned when a reply frame cannot be decoded.
	ErrUnexpectedReply = errors.New("unexpected reply")
)
