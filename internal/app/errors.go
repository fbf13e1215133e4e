package app

import "errors"

// Application errors.
var (
	// ErrUnknownChannel indicates a channel kind with no factory.
	ErrUnknownChannel = errors.New("unknown channel kind")

	// ErrClosed indicates the application has been closed.
	ErrClosed = errors.New("application closed")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
