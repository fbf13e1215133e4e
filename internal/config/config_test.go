package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dshills/cadence/internal/gutter"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := cfg.Session.Debounce.Std(); got != 250*time.Millisecond {
		t.Errorf("Session.Debounce = %v, want 250ms", got)
	}
	if cfg.Coordinator.MaxFailures != 3 {
		t.Errorf("Coordinator.MaxFailures = %d, want 3", cfg.Coordinator.MaxFailures)
	}
	if cfg.Session.ErrorLogSize != 10 {
		t.Errorf("Session.ErrorLogSize = %d, want 10", cfg.Session.ErrorLogSize)
	}
	if cfg.Strategy() != gutter.StrategyInline {
		t.Errorf("Strategy() = %v, want inline", cfg.Strategy())
	}
}

func TestLoadFS_TOML(t *testing.T) {
	fsys := fstest.MapFS{
		"cadence.toml": {Data: []byte(`
[analysis]
language = "de"
leftMin = 1

[coordinator]
channel = "process"
workerCommand = ["cadence-worker", "--quiet"]
requestTimeout = "2s"

[session]
debounce = "100ms"

[display]
strategy = "replace"
`)},
	}

	cfg, err := LoadFS(fsys, "cadence.toml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if cfg.Analysis.Language != "de" {
		t.Errorf("Analysis.Language = %q, want de", cfg.Analysis.Language)
	}
	if cfg.Analysis.LeftMin != 1 {
		t.Errorf("Analysis.LeftMin = %d, want 1", cfg.Analysis.LeftMin)
	}
	if cfg.Analysis.RightMin != 2 {
		t.Errorf("Analysis.RightMin = %d, want default 2", cfg.Analysis.RightMin)
	}
	if cfg.Coordinator.Channel != ChannelProcess {
		t.Errorf("Coordinator.Channel = %q, want process", cfg.Coordinator.Channel)
	}
	if want := []string{"cadence-worker", "--quiet"}; !reflect.DeepEqual(cfg.Coordinator.WorkerCommand, want) {
		t.Errorf("Coordinator.WorkerCommand = %q, want %q", cfg.Coordinator.WorkerCommand, want)
	}
	if got := cfg.Coordinator.RequestTimeout.Std(); got != 2*time.Second {
		t.Errorf("Coordinator.RequestTimeout = %v, want 2s", got)
	}
	if got := cfg.Session.Debounce.Std(); got != 100*time.Millisecond {
		t.Errorf("Session.Debounce = %v, want 100ms", got)
	}
	if cfg.Strategy() != gutter.StrategyReplace {
		t.Errorf("Strategy() = %v, want replace", cfg.Strategy())
	}
}

func TestLoadFS_YAML(t *testing.T) {
	fsys := fstest.MapFS{
		"cadence.yaml": {Data: []byte(`
analysis:
  language: fr
session:
  debounce: 1s
  errorLogSize: 3
logging:
  level: debug
metrics:
  addr: ":9090"
`)},
	}

	cfg, err := LoadFS(fsys, "cadence.yaml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if cfg.Analysis.Language != "fr" {
		t.Errorf("Analysis.Language = %q, want fr", cfg.Analysis.Language)
	}
	if got := cfg.Session.Debounce.Std(); got != time.Second {
		t.Errorf("Session.Debounce = %v, want 1s", got)
	}
	if cfg.Session.ErrorLogSize != 3 {
		t.Errorf("Session.ErrorLogSize = %d, want 3", cfg.Session.ErrorLogSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q, want :9090", cfg.Metrics.Addr)
	}
	if cfg.Coordinator.Channel != ChannelWorker {
		t.Errorf("Coordinator.Channel = %q, want default worker", cfg.Coordinator.Channel)
	}
}

func TestLoadFS_JSON(t *testing.T) {
	fsys := fstest.MapFS{
		"cadence.json": {Data: []byte(`{"coordinator": {"channel": "none", "maxFailures": 5}}`)},
	}
	cfg, err := LoadFS(fsys, "cadence.json")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if cfg.Coordinator.Channel != ChannelNone || cfg.Coordinator.MaxFailures != 5 {
		t.Errorf("Coordinator = %+v", cfg.Coordinator)
	}
}

func TestLoadFS_EmptyYAML(t *testing.T) {
	fsys := fstest.MapFS{"cadence.yml": {Data: nil}}
	cfg, err := LoadFS(fsys, "cadence.yml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty file changed defaults: %+v", cfg)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.toml":      {Data: []byte("[analysis\nlanguage = 1")},
		"unknown.toml":  {Data: []byte("[analysis]\nlangauge = \"en\"\n")},
		"unknown.yaml":  {Data: []byte("analysis:\n  langauge: en\n")},
		"bad.json":      {Data: []byte(`{"analysis": `)},
		"duration.toml": {Data: []byte("[session]\ndebounce = \"soon\"\n")},
		"config.ini":    {Data: []byte("")},
		"invalid.toml":  {Data: []byte("[coordinator]\nchannel = \"carrier-pigeon\"\n")},
	}

	tests := []struct {
		path   string
		target error
		line   int
	}{
		{"bad.toml", nil, 0},
		{"unknown.toml", nil, 2},
		{"unknown.yaml", nil, 2},
		{"bad.json", nil, 0},
		{"duration.toml", nil, 0},
		{"config.ini", ErrUnsupportedFormat, 0},
		{"missing.toml", ErrFileNotFound, 0},
		{"invalid.toml", ErrValidationFailed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := LoadFS(fsys, tt.path)
			if err == nil {
				t.Fatal("LoadFS() error = nil")
			}
			if tt.target != nil {
				if !errors.Is(err, tt.target) {
					t.Errorf("error = %v, want %v", err, tt.target)
				}
				return
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v (%T), want *ParseError", err, err)
			}
			if pe.Path != tt.path {
				t.Errorf("ParseError.Path = %q, want %q", pe.Path, tt.path)
			}
			if tt.line > 0 && pe.Line != tt.line {
				t.Errorf("ParseError.Line = %d, want %d", pe.Line, tt.line)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Language = "not a tag!"
	cfg.Coordinator.MaxFailures = 0
	cfg.Session.Debounce = -1
	cfg.Display.Strategy = "sparkles"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Validate() = %v, want ErrValidationFailed", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("Validate() error %T does not join errors", err)
	}
	var paths []string
	for _, e := range joined.Unwrap() {
		var ve *ValidationError
		if errors.As(e, &ve) {
			paths = append(paths, ve.Path)
		}
	}
	want := []string{
		"analysis.language",
		"coordinator.maxFailures",
		"session.debounce",
		"display.strategy",
		"logging.level",
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("invalid paths = %q, want %q", paths, want)
	}
}

func TestResolve_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cadence.toml")
	data := "[session]\ndebounce = \"50ms\"\nerrorLogSize = 4\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	environ := []string{
		"HOME=/home/test",
		"CADENCE_DEBOUNCE=75ms",
		"CADENCE_COLOUR=yes",
	}
	cfg, unknown, err := Resolve(path, environ)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := cfg.Session.Debounce.Std(); got != 75*time.Millisecond {
		t.Errorf("Session.Debounce = %v, want env value 75ms", got)
	}
	if cfg.Session.ErrorLogSize != 4 {
		t.Errorf("Session.ErrorLogSize = %d, want file value 4", cfg.Session.ErrorLogSize)
	}
	if want := []string{"CADENCE_COLOUR"}; !reflect.DeepEqual(unknown, want) {
		t.Errorf("unknown = %q, want %q", unknown, want)
	}
}

func TestResolve_NamedFileMustExist(t *testing.T) {
	_, _, err := Resolve(filepath.Join(t.TempDir(), "nope.toml"), nil)
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Resolve() error = %v, want ErrFileNotFound", err)
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"a.toml", FormatTOML, true},
		{"A.TOML", FormatTOML, true},
		{"b.yaml", FormatYAML, true},
		{"b.yml", FormatYAML, true},
		{"c.json", FormatJSON, true},
		{"d.conf", 0, false},
		{"noext", 0, false},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("FormatFor(%q) = %v, %v", tt.path, got, err)
		}
	}
}
