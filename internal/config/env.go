package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CADENCE_"

// envSetting applies one environment variable to a Config.
type envSetting struct {
	path  string
	apply func(c *Config, value string) error
}

// envMapping maps environment variables to settings.
var envMapping = map[string]envSetting{
	"CADENCE_LANGUAGE":        {"analysis.language", setString(func(c *Config) *string { return &c.Analysis.Language })},
	"CADENCE_PATTERNS":        {"analysis.patterns", setString(func(c *Config) *string { return &c.Analysis.Patterns })},
	"CADENCE_LUA_SCRIPT":      {"analysis.luaScript", setString(func(c *Config) *string { return &c.Analysis.LuaScript })},
	"CADENCE_LEFT_MIN":        {"analysis.leftMin", setInt(func(c *Config) *int { return &c.Analysis.LeftMin })},
	"CADENCE_RIGHT_MIN":       {"analysis.rightMin", setInt(func(c *Config) *int { return &c.Analysis.RightMin })},
	"CADENCE_CHANNEL":         {"coordinator.channel", setString(func(c *Config) *string { return &c.Coordinator.Channel })},
	"CADENCE_WORKER_COMMAND":  {"coordinator.workerCommand", setFields(func(c *Config) *[]string { return &c.Coordinator.WorkerCommand })},
	"CADENCE_MAX_FAILURES":    {"coordinator.maxFailures", setInt(func(c *Config) *int { return &c.Coordinator.MaxFailures })},
	"CADENCE_REQUEST_TIMEOUT": {"coordinator.requestTimeout", setDuration(func(c *Config) *Duration { return &c.Coordinator.RequestTimeout })},
	"CADENCE_DEBOUNCE":        {"session.debounce", setDuration(func(c *Config) *Duration { return &c.Session.Debounce })},
	"CADENCE_ERROR_LOG_SIZE":  {"session.errorLogSize", setInt(func(c *Config) *int { return &c.Session.ErrorLogSize })},
	"CADENCE_STRATEGY":        {"display.strategy", setString(func(c *Config) *string { return &c.Display.Strategy })},
	"CADENCE_SEPARATOR":       {"display.separator", setString(func(c *Config) *string { return &c.Display.Separator })},
	"CADENCE_HEAT":            {"display.heat", setBool(func(c *Config) *bool { return &c.Display.Heat })},
	"CADENCE_LOG_LEVEL":       {"logging.level", setString(func(c *Config) *string { return &c.Logging.Level })},
	"CADENCE_METRICS_ADDR":    {"metrics.addr", setString(func(c *Config) *string { return &c.Metrics.Addr })},
}

// EnvVars returns the recognised environment variable names, sorted.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv applies CADENCE_ overrides from environ (os.Environ form) to
// cfg. Empty values are treated as set. It returns the prefixed names it
// did not recognise; malformed values are returned as joined errors.
func ApplyEnv(cfg *Config, environ []string) ([]string, error) {
	var unknown []string
	var errs []error
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		s, ok := envMapping[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if err := s.apply(cfg, value); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", name, s.path, err))
		}
	}
	sort.Strings(unknown)
	return unknown, errors.Join(errs...)
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			*field(c) = true
		case "false", "no", "off", "0":
			*field(c) = false
		default:
			return fmt.Errorf("invalid boolean %q", v)
		}
		return nil
	}
}

func setDuration(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid duration %q", v)
		}
		*field(c) = Duration(d)
		return nil
	}
}

// setFields splits a command line on whitespace.
func setFields(field func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = strings.Fields(v)
		return nil
	}
}
