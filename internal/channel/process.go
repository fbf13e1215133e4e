package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cadence/internal/logging"
)

// DefaultStopTimeout is how long Close waits for the child to exit after
// its stdin is closed before killing it.
const DefaultStopTimeout = 2 * time.Second

// ProcessConfig describes the worker subprocess.
type ProcessConfig struct {
	// Command is the executable, usually the cadence binary itself.
	Command string

	// Args are passed to Command, e.g. ["worker"].
	Args []string

	// Env holds extra KEY=VALUE entries appended to the parent environment.
	Env []string

	// Dir is the working directory. Empty means the parent's.
	Dir string

	// Stderr receives the child's stderr. Nil discards it.
	Stderr io.Writer

	// StopTimeout overrides DefaultStopTimeout.
	StopTimeout time.Duration
}

// Process is a Channel backed by a child process speaking the framed JSON
// protocol over stdin/stdout.
type Process struct {
	id     string
	config ProcessConfig
	logger *logging.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	conn  *Conn

	queue     *queue
	responses chan Response
	failed    chan error

	closing  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
	exited   chan struct{}
}

// StartProcess launches the child and starts its I/O loops.
func StartProcess(ctx context.Context, cfg ProcessConfig, logger *logging.Logger) (*Process, error) {
	if cfg.Command == "" {
		return nil, errors.New("process channel: empty command")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if logger == nil {
		logger = logging.Null()
	}

	id := uuid.NewString()
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Dir = cfg.Dir
	cmd.Stderr = cfg.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	p := &Process{
		id:        id,
		config:    cfg,
		logger:    logger.With("channel", id),
		cmd:       cmd,
		stdin:     stdin,
		conn:      NewConn(stdout, stdin),
		queue:     newQueue(),
		responses: make(chan Response, 16),
		failed:    make(chan error, 1),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	p.logger.Debug("started %s (pid %d)", cfg.Command, cmd.Process.Pid)

	go p.writeLoop()
	go p.readLoop()
	return p, nil
}

// ProcessFactory returns a Factory that starts a new child per call.
func ProcessFactory(cfg ProcessConfig, logger *logging.Logger) Factory {
	return func(ctx context.Context) (Channel, error) {
		return StartProcess(ctx, cfg, logger)
	}
}

// ID returns the instance id used in logs.
func (p *Process) ID() string {
	return p.id
}

// Send enqueues a request for the writer goroutine.
func (p *Process) Send(req Request) error {
	return p.queue.push(req)
}

// Responses returns the response stream.
func (p *Process) Responses() <-chan Response {
	return p.responses
}

// Failed returns the fatal failure stream.
func (p *Process) Failed() <-chan error {
	return p.failed
}

// Close closes the child's stdin and waits for it to exit, killing it after
// the stop timeout.
func (p *Process) Close() error {
	p.closing.Store(true)
	p.stop()

	select {
	case <-p.exited:
	case <-time.After(p.config.StopTimeout):
		p.logger.Warn("worker did not exit in %v, killing", p.config.StopTimeout)
		p.kill()
		<-p.exited
	}
	return nil
}

func (p *Process) stop() {
	p.stopOnce.Do(func() {
		p.queue.close()
		close(p.done)
		p.stdin.Close()
	})
}

func (p *Process) kill() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

// fail reports a fatal error unless the channel is shutting down.
func (p *Process) fail(err error) {
	if p.closing.Load() {
		return
	}
	p.stop()
	p.kill()
	select {
	case p.failed <- err:
		p.logger.Warn("worker failed: %v", err)
	default:
	}
}

func (p *Process) writeLoop() {
	for {
		req, ok := p.queue.pop(p.done)
		if !ok {
			return
		}
		data, err := EncodeRequest(req)
		if err != nil {
			p.fail(fmt.Errorf("encode request %d: %w", req.ID, err))
			return
		}
		if err := p.conn.WriteMessage(data); err != nil {
			p.fail(fmt.Errorf("%w: %v", ErrCrashed, err))
			return
		}
	}
}

func (p *Process) readLoop() {
	defer close(p.exited)
	defer close(p.responses)

	streamErr := p.readResponses()

	// Wait must follow the last read from stdout.
	waitErr := p.cmd.Wait()
	switch {
	case streamErr != nil:
		p.fail(streamErr)
	case waitErr != nil:
		p.fail(fmt.Errorf("%w: %v", ErrCrashed, waitErr))
	default:
		p.fail(fmt.Errorf("%w: worker exited", ErrCrashed))
	}
}

// readResponses delivers responses until the stream ends. A nil return
// means a clean EOF.
func (p *Process) readResponses() error {
	for {
		data, err := p.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrCrashed, err)
		}

		resp, err := DecodeResponse(data)
		if errors.Is(err, ErrUnknownType) {
			p.logger.Warn("ignoring message: %v", err)
			continue
		}
		if err != nil {
			p.kill()
			return err
		}

		select {
		case p.responses <- resp:
		case <-p.done:
			// Drain so the child is never blocked writing.
			for {
				if _, err := p.conn.ReadMessage(); err != nil {
					return nil
				}
			}
		}
	}
}
