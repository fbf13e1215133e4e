// Package session keeps a document's syllable analysis up to date as the
// document changes.
//
// Edits mark lines dirty. After a quiet period the dirty lines are
// submitted to a coordinator, and each result is applied to the store only
// if the line still has the text that was analyzed. Superseded requests are
// expected during typing and are dropped silently. Lines lost to a channel
// failure or timeout are resubmitted; any other failure is recorded in the
// error log.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cadence/internal/coordinator"
	"github.com/dshills/cadence/internal/debounce"
	"github.com/dshills/cadence/internal/errlog"
	"github.com/dshills/cadence/internal/logging"
	"github.com/dshills/cadence/internal/store"
)

// DefaultDebounce is the default quiet period before dirty lines are
// analyzed.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned by mutating methods after Close.
var ErrClosed = errors.New("session closed")

// ErrLineRange indicates a line index outside the document.
var ErrLineRange = errors.New("line out of range")

// MaxRetries bounds how often a line whose request was lost to a channel
// failure or timeout is resubmitted.
const MaxRetries = 3

type retryState struct {
	text  string
	count int
}

// Coordinator is the part of a coordinator a session uses.
type Coordinator interface {
	Submit(lineNumber int, text string) *coordinator.Future
	Shutdown()
}

// Config configures a Session.
type Config struct {
	// Debounce is the quiet period after the last edit. Zero submits on
	// every edit.
	Debounce time.Duration

	// ErrorLogSize bounds the error log.
	ErrorLogSize int

	// Logger receives session logs. Nil discards them.
	Logger *logging.Logger
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:     DefaultDebounce,
		ErrorLogSize: errlog.DefaultSize,
	}
}

// Session owns a document, its line state store and its error log.
type Session struct {
	id        string
	coord     Coordinator
	store     *store.Store
	errors    *errlog.Log
	debouncer *debounce.Debouncer
	logger    *logging.Logger

	// mu guards the document. Results are checked and applied under mu so
	// an edit cannot slip between the check and the store update; store
	// observers therefore must not call back into the session.
	mu       sync.Mutex
	lines    []string
	dirty    map[int]struct{}
	retries  map[int]retryState
	inflight int
	idle     chan struct{}
	closed   bool
}

// New creates an empty session that analyzes lines through coord.
func New(coord Coordinator, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Null()
	}
	id := uuid.NewString()

	s := &Session{
		id:      id,
		coord:   coord,
		store:   store.New(),
		errors:  errlog.New(cfg.ErrorLogSize),
		logger:  logger.WithComponent("session").With("session", id[:8]),
		dirty:   make(map[int]struct{}),
		retries: make(map[int]retryState),
		idle:    closedChan(),
	}
	s.debouncer = debounce.New(cfg.Debounce, s.flush)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Store returns the line state store.
func (s *Session) Store() *store.Store {
	return s.store
}

// Errors returns the processing error log.
func (s *Session) Errors() *errlog.Log {
	return s.errors
}

// Load replaces the document and analyzes every line immediately.
func (s *Session) Load(lines []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.lines = append([]string(nil), lines...)
	clear(s.dirty)
	clear(s.retries)
	for i := range s.lines {
		s.dirty[i] = struct{}{}
	}
	n := len(s.lines)
	s.mu.Unlock()

	s.store.Prune(n)
	s.debouncer.Cancel()
	s.flush()
	return nil
}

// SetLines replaces the document, marking changed lines dirty.
func (s *Session) SetLines(lines []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	for i, text := range lines {
		if i >= len(s.lines) || s.lines[i] != text {
			s.dirty[i] = struct{}{}
		}
	}
	shrunk := len(lines) < len(s.lines)
	s.lines = append(s.lines[:0:0], lines...)
	n := len(s.lines)
	s.mu.Unlock()

	if shrunk {
		s.store.Prune(n)
	}
	s.debouncer.Trigger()
	return nil
}

// SetText replaces the document with text split into lines.
func (s *Session) SetText(text string) error {
	return s.SetLines(SplitLines(text))
}

// SetLine changes one line. line may equal LineCount to append.
func (s *Session) SetLine(line int, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	switch {
	case line < 0 || line > len(s.lines):
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrLineRange, line, len(s.lines))
	case line == len(s.lines):
		s.lines = append(s.lines, text)
	case s.lines[line] == text:
		s.mu.Unlock()
		return nil
	default:
		s.lines[line] = text
	}
	s.dirty[line] = struct{}{}
	s.mu.Unlock()

	s.debouncer.Trigger()
	return nil
}

// InsertLine inserts a line before line. Every following line moves down
// and is re-analyzed.
func (s *Session) InsertLine(line int, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if line < 0 || line > len(s.lines) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrLineRange, line, len(s.lines))
	}
	s.lines = append(s.lines, "")
	copy(s.lines[line+1:], s.lines[line:])
	s.lines[line] = text
	s.markFromLocked(line)
	s.mu.Unlock()

	s.debouncer.Trigger()
	return nil
}

// DeleteLine removes a line. Every following line moves up and is
// re-analyzed; the result past the new end is pruned.
func (s *Session) DeleteLine(line int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if line < 0 || line >= len(s.lines) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrLineRange, line, len(s.lines))
	}
	s.lines = append(s.lines[:line], s.lines[line+1:]...)
	s.markFromLocked(line)
	delete(s.dirty, len(s.lines))
	n := len(s.lines)
	s.mu.Unlock()

	s.store.Prune(n)
	s.debouncer.Trigger()
	return nil
}

// Line returns the text of one line.
func (s *Session) Line(line int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line < 0 || line >= len(s.lines) {
		return "", false
	}
	return s.lines[line], true
}

// Lines returns a copy of the document.
func (s *Session) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// LineCount returns the number of lines.
func (s *Session) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Flush submits dirty lines now instead of waiting for the quiet period.
func (s *Session) Flush() {
	s.debouncer.Cancel()
	s.flush()
}

// Settle flushes dirty lines and waits until every submitted line has
// settled.
func (s *Session) Settle(ctx context.Context) error {
	s.Flush()
	for {
		s.mu.Lock()
		if s.inflight == 0 || s.closed {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels pending work and shuts down the coordinator. Results that
// arrive afterwards are dropped. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clear(s.dirty)
	s.mu.Unlock()

	s.debouncer.Stop()
	s.coord.Shutdown()
	s.logger.Debug("closed")
}

func (s *Session) markFromLocked(line int) {
	for i := line; i < len(s.lines); i++ {
		s.dirty[i] = struct{}{}
	}
}

// flush submits every dirty line in ascending order.
func (s *Session) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.dirty) == 0 {
		return
	}
	lines := make([]int, 0, len(s.dirty))
	for n := range s.dirty {
		lines = append(lines, n)
	}
	clear(s.dirty)
	sort.Ints(lines)

	for _, n := range lines {
		if n >= len(s.lines) {
			continue
		}
		text := s.lines[n]
		f := s.coord.Submit(n, text)
		if s.inflight == 0 {
			s.idle = make(chan struct{})
		}
		s.inflight++
		go s.await(n, text, f)
	}
	s.logger.Debug("submitted %d lines", len(lines))
}

func (s *Session) await(line int, text string, f *coordinator.Future) {
	r, err := f.Result()

	s.mu.Lock()
	retry := false
	switch {
	case s.closed:
	case err == nil:
		delete(s.retries, line)
		if line < len(s.lines) && s.lines[line] == text {
			s.store.Apply(r)
		}
	case coordinator.IsSuperseded(err), errors.Is(err, coordinator.ErrShutdown):
		s.logger.Debug("line %d: %v", line, err)
	case errors.Is(err, coordinator.ErrChannelFailed), errors.Is(err, coordinator.ErrTimeout):
		retry = s.requeueLocked(line, text, err)
	default:
		s.logger.Error("line %d: %v", line, err)
		s.errors.Add(fmt.Sprintf("line %d: %v", line+1, err))
	}
	s.mu.Unlock()

	// Trigger before settling so Settle also waits for the resubmission.
	if retry {
		s.debouncer.Trigger()
	}

	s.mu.Lock()
	s.doneLocked()
	s.mu.Unlock()
}

// requeueLocked marks a line lost to the channel dirty again. It gives up
// after MaxRetries attempts for the same text and records the error. A
// request that never reached a dead channel is not counted: the channel's
// own failure is reported separately and the coordinator replaces it.
func (s *Session) requeueLocked(line int, text string, err error) bool {
	if line >= len(s.lines) || s.lines[line] != text {
		return false
	}
	rt := s.retries[line]
	if rt.text != text {
		rt = retryState{text: text}
	}
	var ce *coordinator.ChannelError
	if !errors.As(err, &ce) || ce.Op != "send" {
		rt.count++
	}
	if rt.count > MaxRetries {
		delete(s.retries, line)
		s.logger.Error("line %d: giving up after %d attempts: %v", line, MaxRetries, err)
		s.errors.Add(fmt.Sprintf("line %d: %v", line+1, err))
		return false
	}
	s.retries[line] = rt
	s.dirty[line] = struct{}{}
	s.logger.Warn("line %d: %v, resubmitting", line, err)
	return true
}

func (s *Session) doneLocked() {
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// SplitLines splits text on newlines, accepting CRLF. A final newline does
// not start an extra line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
