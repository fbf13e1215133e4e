// Package errlog keeps the most recent processing errors for display.
package errlog

import "sync"

// DefaultSize is the number of errors retained by default.
const DefaultSize = 10

// Log is a bounded, rolling list of error messages. When full, adding a
// message drops the oldest one.
type Log struct {
	mu    sync.Mutex
	size  int
	items []string
}

// New creates a log holding at most size messages. A non-positive size
// uses DefaultSize.
func New(size int) *Log {
	if size <= 0 {
		size = DefaultSize
	}
	return &Log{size: size, items: make([]string, 0, size)}
}

// Add appends a message.
func (l *Log) Add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.items) == l.size {
		copy(l.items, l.items[1:])
		l.items = l.items[:l.size-1]
	}
	l.items = append(l.items, msg)
}

// List returns the retained messages, oldest first.
func (l *Log) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.items...)
}

// Clear removes every message.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = l.items[:0]
}

// Len returns the number of retained messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Size returns the capacity.
func (l *Log) Size() int {
	return l.size
}
