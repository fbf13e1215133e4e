package coordinator

import (
	"context"
	"sync"

	"github.com/dshills/cadence/internal/syllable"
)

// Future is the pending outcome of one submitted line.
type Future struct {
	lineNumber int
	done       chan struct{}
	once       sync.Once

	result syllable.LineResult
	err    error
}

func newFuture(lineNumber int) *Future {
	return &Future{lineNumber: lineNumber, done: make(chan struct{})}
}

func resolvedFuture(lineNumber int, r syllable.LineResult) *Future {
	f := newFuture(lineNumber)
	f.resolve(r)
	return f
}

func rejectedFuture(lineNumber int, err error) *Future {
	f := newFuture(lineNumber)
	f.reject(err)
	return f
}

// LineNumber returns the line the future was submitted for.
func (f *Future) LineNumber() int {
	return f.lineNumber
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future settles.
func (f *Future) Result() (syllable.LineResult, error) {
	<-f.done
	return f.result, f.err
}

// Wait blocks until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (syllable.LineResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return syllable.LineResult{}, ctx.Err()
	}
}

// settled reports whether the future has completed.
func (f *Future) settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future) resolve(r syllable.LineResult) bool {
	ok := false
	f.once.Do(func() {
		f.result = r
		close(f.done)
		ok = true
	})
	return ok
}

func (f *Future) reject(err error) bool {
	ok := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		ok = true
	})
	return ok
}
