package config

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/dshills/cadence/internal/coordinator"
	"github.com/dshills/cadence/internal/errlog"
	"github.com/dshills/cadence/internal/gutter"
	"github.com/dshills/cadence/internal/hyphen"
	"github.com/dshills/cadence/internal/session"
	"github.com/dshills/cadence/internal/syllable"
)

// Channel kinds.
const (
	// ChannelWorker analyzes lines on a background goroutine.
	ChannelWorker = "worker"
	// ChannelProcess analyzes lines in a child process.
	ChannelProcess = "process"
	// ChannelNone analyzes lines synchronously.
	ChannelNone = "none"
)

// DefaultRequestTimeout is the default per-request timeout.
const DefaultRequestTimeout = 5 * time.Second

// Config is the complete cadence configuration.
type Config struct {
	Analysis    AnalysisConfig    `toml:"analysis" yaml:"analysis" json:"analysis"`
	Coordinator CoordinatorConfig `toml:"coordinator" yaml:"coordinator" json:"coordinator"`
	Session     SessionConfig     `toml:"session" yaml:"session" json:"session"`
	Display     DisplayConfig     `toml:"display" yaml:"display" json:"display"`
	Logging     LoggingConfig     `toml:"logging" yaml:"logging" json:"logging"`
	Metrics     MetricsConfig     `toml:"metrics" yaml:"metrics" json:"metrics"`
}

// AnalysisConfig selects and tunes the hyphenator.
type AnalysisConfig struct {
	// Language is the BCP 47 tag of the lyrics.
	Language string `toml:"language" yaml:"language" json:"language"`

	// Patterns is a TeX hyphenation pattern file. Empty uses the built-in
	// heuristic.
	Patterns string `toml:"patterns" yaml:"patterns" json:"patterns"`

	// LuaScript is a script defining hyphenate(word). It takes precedence
	// over Patterns.
	LuaScript string `toml:"luaScript" yaml:"luaScript" json:"luaScript"`

	// LeftMin and RightMin bound breaks near word edges for pattern files.
	LeftMin  int `toml:"leftMin" yaml:"leftMin" json:"leftMin"`
	RightMin int `toml:"rightMin" yaml:"rightMin" json:"rightMin"`
}

// CoordinatorConfig configures the background channel.
type CoordinatorConfig struct {
	// Channel is one of "worker", "process" or "none".
	Channel string `toml:"channel" yaml:"channel" json:"channel"`

	// WorkerCommand runs the process channel. Empty runs this executable's
	// worker command.
	WorkerCommand []string `toml:"workerCommand" yaml:"workerCommand" json:"workerCommand"`

	// MaxFailures is the consecutive failure threshold for fallback.
	MaxFailures int `toml:"maxFailures" yaml:"maxFailures" json:"maxFailures"`

	// RequestTimeout bounds each request. Zero disables it.
	RequestTimeout Duration `toml:"requestTimeout" yaml:"requestTimeout" json:"requestTimeout"`
}

// SessionConfig configures edit processing.
type SessionConfig struct {
	Debounce     Duration `toml:"debounce" yaml:"debounce" json:"debounce"`
	ErrorLogSize int      `toml:"errorLogSize" yaml:"errorLogSize" json:"errorLogSize"`
}

// DisplayConfig configures how breaks are shown.
type DisplayConfig struct {
	// Strategy is "none", "inline" or "replace".
	Strategy string `toml:"strategy" yaml:"strategy" json:"strategy"`

	// Separator is the break marker.
	Separator string `toml:"separator" yaml:"separator" json:"separator"`

	// Heat colours the count column by syllable count.
	Heat bool `toml:"heat" yaml:"heat" json:"heat"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level" json:"level"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `toml:"addr" yaml:"addr" json:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			Language: "en",
			LeftMin:  hyphen.DefaultLeftMin,
			RightMin: hyphen.DefaultRightMin,
		},
		Coordinator: CoordinatorConfig{
			Channel:        ChannelWorker,
			MaxFailures:    coordinator.DefaultMaxFailures,
			RequestTimeout: Duration(DefaultRequestTimeout),
		},
		Session: SessionConfig{
			Debounce:     Duration(session.DefaultDebounce),
			ErrorLogSize: errlog.DefaultSize,
		},
		Display: DisplayConfig{
			Strategy:  gutter.StrategyInline.String(),
			Separator: syllable.DisplaySeparator,
			Heat:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks every setting and returns all failures joined.
func (c Config) Validate() error {
	var errs []error
	invalid := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	if _, err := language.Parse(c.Analysis.Language); err != nil {
		invalid("analysis.language", "not a BCP 47 language tag", c.Analysis.Language)
	}
	if c.Analysis.LeftMin < 1 {
		invalid("analysis.leftMin", "must be at least 1", c.Analysis.LeftMin)
	}
	if c.Analysis.RightMin < 1 {
		invalid("analysis.rightMin", "must be at least 1", c.Analysis.RightMin)
	}

	switch c.Coordinator.Channel {
	case ChannelWorker, ChannelProcess, ChannelNone:
	default:
		invalid("coordinator.channel", `must be "worker", "process" or "none"`, c.Coordinator.Channel)
	}
	if c.Coordinator.MaxFailures < 1 {
		invalid("coordinator.maxFailures", "must be at least 1", c.Coordinator.MaxFailures)
	}
	if c.Coordinator.RequestTimeout < 0 {
		invalid("coordinator.requestTimeout", "must not be negative", c.Coordinator.RequestTimeout)
	}

	if c.Session.Debounce < 0 {
		invalid("session.debounce", "must not be negative", c.Session.Debounce)
	}
	if c.Session.ErrorLogSize < 1 {
		invalid("session.errorLogSize", "must be at least 1", c.Session.ErrorLogSize)
	}

	if _, ok := gutter.ParseStrategy(c.Display.Strategy); !ok {
		invalid("display.strategy", `must be "none", "inline" or "replace"`, c.Display.Strategy)
	}
	if c.Display.Separator == "" {
		invalid("display.separator", "must not be empty", c.Display.Separator)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		invalid("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}

	return errors.Join(errs...)
}

// Strategy returns the parsed display strategy.
func (c Config) Strategy() gutter.Strategy {
	s, _ := gutter.ParseStrategy(c.Display.Strategy)
	return s
}
