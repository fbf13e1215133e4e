package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/cadence/internal/logging"
	"github.com/dshills/cadence/internal/syllable"
)

// Worker is a Channel backed by one goroutine in the current process.
//
// A panic in the handler is not recovered into a response: it stops the
// goroutine and is reported once on Failed, the same way a crashed
// subprocess would be.
type Worker struct {
	handler Handler
	logger  *logging.Logger

	queue     *queue
	responses chan Response
	failed    chan error

	done      chan struct{}
	closeOnce sync.Once
	exited    chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithHandler replaces the analyzer-backed handler.
func WithHandler(h Handler) WorkerOption {
	return func(w *Worker) {
		w.handler = h
	}
}

// WithWorkerLogger sets the worker's logger.
func WithWorkerLogger(l *logging.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = l
	}
}

// NewWorker starts a worker goroutine. A nil analyzer uses the default
// heuristic analyzer.
func NewWorker(a *syllable.Analyzer, opts ...WorkerOption) *Worker {
	if a == nil {
		a = syllable.NewAnalyzer(nil)
	}
	w := &Worker{
		handler:   AnalyzerHandler(a),
		logger:    logging.Null(),
		queue:     newQueue(),
		responses: make(chan Response, 16),
		failed:    make(chan error, 1),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

// WorkerFactory returns a Factory producing workers that share the analyzer.
func WorkerFactory(a *syllable.Analyzer, opts ...WorkerOption) Factory {
	return func(context.Context) (Channel, error) {
		return NewWorker(a, opts...), nil
	}
}

// Send enqueues a request.
func (w *Worker) Send(req Request) error {
	return w.queue.push(req)
}

// Responses returns the response stream.
func (w *Worker) Responses() <-chan Response {
	return w.responses
}

// Failed returns the fatal failure stream.
func (w *Worker) Failed() <-chan error {
	return w.failed
}

// Close stops the worker and waits for its goroutine to exit.
func (w *Worker) Close() error {
	w.stop()
	<-w.exited
	return nil
}

// Queued returns the number of requests waiting to be handled.
func (w *Worker) Queued() int {
	return w.queue.len()
}

func (w *Worker) stop() {
	w.closeOnce.Do(func() {
		w.queue.close()
		close(w.done)
	})
}

func (w *Worker) run() {
	defer close(w.exited)
	defer close(w.responses)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", ErrCrashed, r)
			w.logger.Warn("worker crashed: %v", r)
			w.stop()
			w.failed <- err
		}
	}()

	for {
		req, ok := w.queue.pop(w.done)
		if !ok {
			return
		}
		resp := w.handler(req)
		select {
		case w.responses <- resp:
		case <-w.done:
			return
		}
	}
}
