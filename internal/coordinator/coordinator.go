// Package coordinator multiplexes line analysis requests over a background
// channel.
//
// Each line has at most one outstanding request. Submitting a line again
// rejects the earlier request with ErrSuperseded, so a stale result can
// never overwrite a newer one. When the channel fails, every outstanding
// request is rejected with ErrChannelFailed and the channel is restarted;
// after MaxFailures consecutive failures the coordinator stops using a
// channel and analyzes lines synchronously for the rest of its life.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/cadence/internal/channel"
	"github.com/dshills/cadence/internal/logging"
	"github.com/dshills/cadence/internal/syllable"
)

// DefaultMaxFailures is the number of consecutive channel failures after
// which the coordinator switches to in-process analysis.
const DefaultMaxFailures = 3

// Config configures a Coordinator.
type Config struct {
	// MaxFailures is the consecutive failure threshold for fallback.
	// Default: 3
	MaxFailures int

	// RequestTimeout rejects a request with ErrTimeout if no response
	// arrives in time. Zero disables timeouts.
	RequestTimeout time.Duration

	// Logger receives coordinator logs. Nil discards them.
	Logger *logging.Logger

	// Registerer receives the coordinator's metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		MaxFailures: DefaultMaxFailures,
	}
}

// Health is a snapshot of channel health.
type Health struct {
	// ConsecutiveFailures counts failures since the last successful
	// response.
	ConsecutiveFailures int

	// UsingFallback is true once the coordinator has given up on the
	// channel. It never resets.
	UsingFallback bool

	// TotalFailures counts every failure, including failed restarts.
	TotalFailures int

	// Restarts counts successful channel restarts.
	Restarts int
}

type pendingRequest struct {
	future *Future
	line   int
	start  time.Time
	timer  *time.Timer
}

func (p *pendingRequest) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
	}
}

// Coordinator owns the background channel and all request bookkeeping.
type Coordinator struct {
	config   Config
	factory  channel.Factory
	fallback *syllable.Analyzer
	logger   *logging.Logger
	metrics  *metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pendingRequest
	lines   map[int]int64
	ch      channel.Channel
	gen     uint64
	health  Health
	closed  bool
}

// New creates a coordinator and starts its first channel. A nil factory
// runs every request in-process from the start. fallback analyzes lines
// when the channel is unavailable; nil uses the default analyzer.
//
// A factory error on startup counts as a channel failure.
func New(ctx context.Context, factory channel.Factory, fallback *syllable.Analyzer, cfg Config) *Coordinator {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if fallback == nil {
		fallback = syllable.NewAnalyzer(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Null()
	}

	c := &Coordinator{
		config:   cfg,
		factory:  factory,
		fallback: fallback,
		logger:   logger.WithComponent("coordinator"),
		metrics:  newMetrics(cfg.Registerer),
		pending:  make(map[int64]*pendingRequest),
		lines:    make(map[int]int64),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if factory == nil {
		c.enterFallbackLocked("no background channel configured")
		return c
	}
	ch, err := factory(c.ctx)
	if err != nil {
		c.failLocked(fmt.Errorf("start channel: %w", err))
		return c
	}
	c.attachLocked(ch)
	return c
}

// Submit queues a line for analysis and returns its future.
//
// Blank lines settle immediately with an empty result and never reach the
// channel. In fallback mode the line is analyzed synchronously and the
// returned future is already settled.
func (c *Coordinator) Submit(lineNumber int, text string) *Future {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return rejectedFuture(lineNumber, ErrShutdown)
	}
	if c.health.UsingFallback {
		c.mu.Unlock()
		c.metrics.requests.WithLabelValues(pathFallback).Inc()
		return resolvedFuture(lineNumber, c.fallback.Analyze(lineNumber, text))
	}
	if syllable.IsBlank(text) {
		c.mu.Unlock()
		c.metrics.requests.WithLabelValues(pathBlank).Inc()
		return resolvedFuture(lineNumber, syllable.Empty(lineNumber))
	}
	defer c.mu.Unlock()

	if oldID, ok := c.lines[lineNumber]; ok {
		if old, ok := c.pending[oldID]; ok {
			delete(c.pending, oldID)
			c.settleLocked(old, nil, ErrSuperseded)
			c.metrics.superseded.Inc()
			c.logger.Debug("request %d for line %d superseded", oldID, lineNumber)
		}
		delete(c.lines, lineNumber)
	}

	c.nextID++
	id := c.nextID
	p := &pendingRequest{
		future: newFuture(lineNumber),
		line:   lineNumber,
		start:  time.Now(),
	}
	c.pending[id] = p
	c.lines[lineNumber] = id
	if c.config.RequestTimeout > 0 {
		p.timer = time.AfterFunc(c.config.RequestTimeout, func() {
			c.expire(id)
		})
	}
	c.metrics.requests.WithLabelValues(pathChannel).Inc()
	c.metrics.pending.Set(float64(len(c.pending)))

	if err := c.ch.Send(channel.NewRequest(id, lineNumber, text)); err != nil {
		delete(c.pending, id)
		delete(c.lines, lineNumber)
		c.logger.Error("send request %d for line %d: %v", id, lineNumber, err)
		c.settleLocked(p, nil, &ChannelError{Op: "send", Err: err})
	}
	return p.future
}

// Process submits a line and waits for its result.
func (c *Coordinator) Process(ctx context.Context, lineNumber int, text string) (syllable.LineResult, error) {
	return c.Submit(lineNumber, text).Wait(ctx)
}

// Shutdown rejects every outstanding request with ErrShutdown and closes
// the channel. Later submissions are rejected. It is safe to call more than
// once.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.rejectAllLocked(ErrShutdown)
	ch := c.detachLocked()
	c.mu.Unlock()

	c.cancel()
	if ch != nil {
		if err := ch.Close(); err != nil {
			c.logger.Warn("close channel: %v", err)
		}
	}
	c.logger.Debug("shut down")
}

// Health returns a snapshot of the channel health.
func (c *Coordinator) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

// PendingCount returns the number of requests awaiting a response.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// watch consumes one channel's output until it stops. gen identifies the
// channel so events from a replaced channel are ignored.
func (c *Coordinator) watch(ch channel.Channel, gen uint64) {
	for {
		select {
		case resp, ok := <-ch.Responses():
			if !ok {
				// A failure is always sent before Responses closes.
				select {
				case err := <-ch.Failed():
					c.onFailure(gen, err)
				default:
				}
				return
			}
			c.onResponse(gen, resp)
		case err := <-ch.Failed():
			c.onFailure(gen, err)
			return
		}
	}
}

func (c *Coordinator) onResponse(gen uint64, resp channel.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.closed {
		return
	}

	p, ok := c.pending[resp.ID]
	if !ok {
		c.logger.Debug("discarding response for unknown request %d", resp.ID)
		return
	}
	delete(c.pending, resp.ID)
	c.health.ConsecutiveFailures = 0

	current, mapped := c.lines[p.line]
	if mapped && current == resp.ID {
		delete(c.lines, p.line)
	} else if mapped {
		c.settleLocked(p, nil, ErrSuperseded)
		return
	}

	switch {
	case resp.Type == channel.TypeError:
		err := &RequestError{ID: resp.ID, LineNumber: p.line, Message: resp.Error}
		c.logger.Error("request %d failed: %v", resp.ID, err)
		c.settleLocked(p, nil, err)
	case resp.Type == channel.TypeLineResult && resp.Data != nil:
		result := *resp.Data
		c.settleLocked(p, &result, nil)
	default:
		c.logger.Error("request %d: %v", resp.ID, ErrInvalidResponse)
		c.settleLocked(p, nil, ErrInvalidResponse)
	}
}

func (c *Coordinator) onFailure(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.closed {
		return
	}
	c.failLocked(err)
}

func (c *Coordinator) expire(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return
	}
	delete(c.pending, id)
	if c.lines[p.line] == id {
		delete(c.lines, p.line)
	}
	c.logger.Warn("request %d for line %d timed out after %v", id, p.line, c.config.RequestTimeout)
	c.settleLocked(p, nil, ErrTimeout)
}

// failLocked handles a fatal channel failure: outstanding requests are
// rejected, then the channel is restarted until it starts or the failure
// threshold is reached.
func (c *Coordinator) failLocked(cause error) {
	if old := c.detachLocked(); old != nil {
		go old.Close()
	}
	c.rejectAllLocked(&ChannelError{Op: "run", Err: cause})
	c.recordFailureLocked(cause)

	for !c.health.UsingFallback {
		ch, err := c.factory(c.ctx)
		if err != nil {
			c.recordFailureLocked(fmt.Errorf("restart channel: %w", err))
			continue
		}
		c.health.Restarts++
		c.metrics.restarts.Inc()
		c.logger.Info("channel restarted (failure %d of %d)", c.health.ConsecutiveFailures, c.config.MaxFailures)
		c.attachLocked(ch)
		return
	}
}

func (c *Coordinator) recordFailureLocked(err error) {
	c.health.ConsecutiveFailures++
	c.health.TotalFailures++
	c.metrics.failures.Inc()
	c.logger.Warn("channel failure %d of %d: %v", c.health.ConsecutiveFailures, c.config.MaxFailures, err)

	if c.health.ConsecutiveFailures >= c.config.MaxFailures {
		c.enterFallbackLocked("channel failed repeatedly")
	}
}

func (c *Coordinator) enterFallbackLocked(reason string) {
	if c.health.UsingFallback {
		return
	}
	c.health.UsingFallback = true
	c.metrics.fallback.Set(1)
	c.logger.Info("analyzing lines in-process: %s", reason)
}

func (c *Coordinator) attachLocked(ch channel.Channel) {
	c.gen++
	c.ch = ch
	go c.watch(ch, c.gen)
}

func (c *Coordinator) detachLocked() channel.Channel {
	ch := c.ch
	c.ch = nil
	c.gen++
	return ch
}

func (c *Coordinator) rejectAllLocked(err error) {
	for id, p := range c.pending {
		delete(c.pending, id)
		c.settleLocked(p, nil, err)
	}
	clear(c.lines)
}

// settleLocked completes a request and records its metrics.
func (c *Coordinator) settleLocked(p *pendingRequest, result *syllable.LineResult, err error) {
	p.stopTimer()

	outcome := outcomeOK
	switch {
	case err == nil:
		p.future.resolve(*result)
	default:
		p.future.reject(err)
		outcome = outcomeFor(err)
	}
	c.metrics.latency.WithLabelValues(outcome).Observe(time.Since(p.start).Seconds())
	c.metrics.pending.Set(float64(len(c.pending)))
}

func outcomeFor(err error) string {
	switch err {
	case ErrSuperseded:
		return outcomeSuperseded
	case ErrTimeout:
		return outcomeTimeout
	case ErrShutdown:
		return outcomeShutdown
	}
	if _, ok := err.(*ChannelError); ok {
		return outcomeFailed
	}
	return outcomeError
}
