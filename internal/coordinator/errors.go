package coordinator

import (
	"errors"
	"fmt"
)

// Standard errors delivered through futures.
var (
	// ErrSuperseded indicates a newer request for the same line replaced
	// this one. It is routine and not a fault.
	ErrSuperseded = errors.New("request superseded")

	// ErrChannelFailed indicates the background channel failed while the
	// request was outstanding.
	ErrChannelFailed = errors.New("channel failed")

	// ErrTimeout indicates no response arrived within the request timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrShutdown indicates the coordinator has been shut down.
	ErrShutdown = errors.New("coordinator shut down")

	// ErrInvalidResponse indicates a response that carried neither data nor
	// an error.
	ErrInvalidResponse = errors.New("invalid response from channel")
)

// ChannelError wraps a failure of the background channel. It matches
// ErrChannelFailed as well as the underlying cause.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s failed: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() []error {
	return []error{ErrChannelFailed, e.Err}
}

// RequestError is a failure reported by the channel for a single request.
type RequestError struct {
	ID         int64
	LineNumber int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("line %d: %s", e.LineNumber, e.Message)
}

// IsSuperseded reports whether err is the routine supersession signal.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
