// Package app wires Cadence's components together from a Config. It owns
// the logger, the metrics registry and the analyzer, and builds the
// coordinators and sessions the commands run on.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/cadence/internal/channel"
	"github.com/dshills/cadence/internal/config"
	"github.com/dshills/cadence/internal/coordinator"
	"github.com/dshills/cadence/internal/hyphen"
	"github.com/dshills/cadence/internal/logging"
	"github.com/dshills/cadence/internal/session"
	"github.com/dshills/cadence/internal/syllable"
)

// shutdownTimeout bounds the metrics server's graceful shutdown.
const shutdownTimeout = 2 * time.Second

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file the config was loaded from. It
	// is passed on to process workers so they analyze the same way.
	ConfigPath string

	// LogOutput receives logs. Defaults to os.Stderr.
	LogOutput io.Writer

	// Executable overrides os.Executable for the process channel.
	Executable string
}

// Application is the composition root for one cadence invocation.
type Application struct {
	cfg      config.Config
	opts     Options
	logger   *logging.Logger
	registry *prometheus.Registry
	hyph     hyphen.Hyphenator
	analyzer *syllable.Analyzer

	mu      sync.Mutex
	coords  int
	closers []func()
	server  *http.Server
	closed  bool
}

// New validates cfg and builds the application's shared components.
func New(cfg config.Config, opts Options) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: opts.LogOutput,
		Prefix: "cadence",
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h, closeHyph, err := buildHyphenator(cfg.Analysis, logger.WithComponent("hyphen"))
	if err != nil {
		return nil, &InitError{Component: "hyphenator", Err: err}
	}

	return &Application{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		registry: registry,
		hyph:     h,
		analyzer: syllable.NewAnalyzer(h),
		closers:  []func(){closeHyph},
	}, nil
}

// Config returns the application's configuration.
func (a *Application) Config() config.Config {
	return a.cfg
}

// Logger returns the root logger.
func (a *Application) Logger() *logging.Logger {
	return a.logger
}

// Registry returns the metrics registry.
func (a *Application) Registry() *prometheus.Registry {
	return a.registry
}

// Hyphenator returns the hyphenator selected for the configured language.
func (a *Application) Hyphenator() hyphen.Hyphenator {
	return a.hyph
}

// Analyzer returns the in-process analyzer.
func (a *Application) Analyzer() *syllable.Analyzer {
	return a.analyzer
}

// Factory returns the channel factory for the configured channel kind.
// It returns nil for ChannelNone.
func (a *Application) Factory() (channel.Factory, error) {
	switch a.cfg.Coordinator.Channel {
	case config.ChannelWorker:
		return channel.WorkerFactory(a.analyzer,
			channel.WithWorkerLogger(a.logger.WithComponent("worker"))), nil
	case config.ChannelProcess:
		pc, err := a.processConfig()
		if err != nil {
			return nil, err
		}
		return channel.ProcessFactory(pc, a.logger.WithComponent("process")), nil
	case config.ChannelNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownChannel, a.cfg.Coordinator.Channel)
	}
}

// processConfig builds the worker command line. Without an explicit
// command the current executable is rerun as "cadence worker".
func (a *Application) processConfig() (channel.ProcessConfig, error) {
	if cmd := a.cfg.Coordinator.WorkerCommand; len(cmd) > 0 {
		return channel.ProcessConfig{Command: cmd[0], Args: cmd[1:], Stderr: a.opts.LogOutput}, nil
	}

	exe := a.opts.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return channel.ProcessConfig{}, fmt.Errorf("locating executable: %w", err)
		}
	}
	args := []string{"worker"}
	if a.opts.ConfigPath != "" {
		args = append(args, "--config", a.opts.ConfigPath)
	}
	return channel.ProcessConfig{Command: exe, Args: args, Stderr: a.opts.LogOutput}, nil
}

// NewCoordinator starts a coordinator on the configured channel. Each
// coordinator's metrics carry a distinct "coordinator" label.
func (a *Application) NewCoordinator(ctx context.Context) (*coordinator.Coordinator, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	a.coords++
	reg := prometheus.WrapRegistererWith(
		prometheus.Labels{"coordinator": strconv.Itoa(a.coords)}, a.registry)
	a.mu.Unlock()

	factory, err := a.Factory()
	if err != nil {
		return nil, &InitError{Component: "channel", Err: err}
	}
	return coordinator.New(ctx, factory, a.analyzer, coordinator.Config{
		MaxFailures:    a.cfg.Coordinator.MaxFailures,
		RequestTimeout: a.cfg.Coordinator.RequestTimeout.Std(),
		Logger:         a.logger,
		Registerer:     reg,
	}), nil
}

// NewSession starts a coordinator and a session on top of it. Closing the
// session shuts the coordinator down.
func (a *Application) NewSession(ctx context.Context) (*session.Session, *coordinator.Coordinator, error) {
	coord, err := a.NewCoordinator(ctx)
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(coord, session.Config{
		Debounce:     a.cfg.Session.Debounce.Std(),
		ErrorLogSize: a.cfg.Session.ErrorLogSize,
		Logger:       a.logger,
	})
	return sess, coord, nil
}

// ServeMetrics starts the /metrics endpoint when an address is
// configured. It returns the bound address, or "" when disabled.
func (a *Application) ServeMetrics() (string, error) {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return "", nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", &InitError{Component: "metrics", Err: err}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		ln.Close()
		return "", ErrClosed
	}
	a.server = srv
	a.mu.Unlock()

	logger := a.logger.WithComponent("metrics")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	logger.Info("serving metrics on %s", ln.Addr())
	return ln.Addr().String(), nil
}

// Close stops the metrics server and releases the hyphenator. It is safe
// to call more than once.
func (a *Application) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	srv := a.server
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var err error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = srv.Shutdown(ctx)
		cancel()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	return err
}
