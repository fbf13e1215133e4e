package channel

import (
	"context"
	"sync"
)

// Channel is a background execution unit for line analysis.
type Channel interface {
	// Send enqueues a request. It never blocks on analysis; it fails only
	// when the channel is closed or has failed.
	Send(req Request) error

	// Responses delivers responses in completion order. It is closed when
	// the channel stops.
	Responses() <-chan Response

	// Failed delivers at most one fatal error. A failure is always sent
	// before Responses is closed.
	Failed() <-chan error

	// Close stops the channel. Outstanding requests are abandoned.
	Close() error
}

// Factory creates a fresh channel. Coordinators call it again after a
// failure.
type Factory func(ctx context.Context) (Channel, error)

// queue is an unbounded FIFO of requests. Push never blocks, so the owner
// can send while holding its own locks.
type queue struct {
	mu     sync.Mutex
	items  []Request
	closed bool
	notify chan struct{}
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(req Request) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, req)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// pop blocks until a request is available, the queue is closed, or done is
// closed.
func (q *queue) pop(done <-chan struct{}) (Request, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Request{}, false
		}
		if len(q.items) > 0 {
			req := q.items[0]
			q.items[0] = Request{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return req, true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-done:
			return Request{}, false
		}
	}
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
