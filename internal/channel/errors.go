package channel

import "errors"

// Standard errors returned by channels.
var (
	// ErrClosed indicates the channel has been closed or has failed.
	ErrClosed = errors.New("channel closed")

	// ErrCrashed indicates the background unit terminated unexpectedly.
	ErrCrashed = errors.New("channel crashed")

	// ErrUnknownType indicates a message with an unrecognized type field.
	ErrUnknownType = errors.New("unknown message type")

	// ErrMalformed indicates a message that could not be decoded.
	ErrMalformed = errors.New("malformed message")

	// ErrMissingLength indicates a frame without a Content-Length header.
	ErrMissingLength = errors.New("missing Content-Length header")
)
