package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file format.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// FormatFor picks a format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Decode decodes data onto cfg. Settings absent from data keep their
// current values; unknown settings are an error.
func Decode(data []byte, format Format, source string, cfg *Config) error {
	var err error
	switch format {
	case FormatTOML:
		err = decodeTOML(data, cfg)
	case FormatYAML:
		err = decodeYAML(data, cfg)
	case FormatJSON:
		err = decodeJSON(data, cfg)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if err == nil {
		return nil
	}

	pe := &ParseError{Path: source, Message: err.Error(), Err: err}
	var de *toml.DecodeError
	if errors.As(err, &de) {
		pe.Line, pe.Column = de.Position()
	}
	var sme *toml.StrictMissingError
	if errors.As(err, &sme) && len(sme.Errors) > 0 {
		pe.Line, pe.Column = sme.Errors[0].Position()
		pe.Message = "unknown setting " + strings.Join(sme.Errors[0].Key(), ".")
	}
	if format == FormatYAML {
		pe.Line = yamlLine(err)
	}
	return pe
}

func decodeTOML(data []byte, cfg *Config) error {
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	return d.Decode(cfg)
}

func decodeYAML(data []byte, cfg *Config) error {
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeJSON(data []byte, cfg *Config) error {
	d := json.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	return d.Decode(cfg)
}

// yamlLine extracts the line number yaml.v3 embeds in its messages.
func yamlLine(err error) int {
	msg := err.Error()
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}
	msg = strings.TrimPrefix(msg, "yaml: ")
	var line int
	if _, scanErr := fmt.Sscanf(msg, "line %d:", &line); scanErr != nil {
		return 0
	}
	return line
}

// LoadFile reads one configuration file over the defaults and validates
// the result.
func LoadFile(path string) (Config, error) {
	return load(os.ReadFile, path)
}

// LoadFS is LoadFile reading from fsys.
func LoadFS(fsys fs.FS, path string) (Config, error) {
	return load(func(name string) ([]byte, error) {
		return fs.ReadFile(fsys, name)
	}, path)
}

func load(read func(string) ([]byte, error), path string) (Config, error) {
	cfg := Default()
	if err := loadInto(read, path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func loadInto(read func(string) ([]byte, error), path string, cfg *Config) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Decode(data, format, path, cfg)
}

// SearchPaths returns the files tried when no path is given, in order.
func SearchPaths() []string {
	paths := []string{"cadence.toml", "cadence.yaml", "cadence.yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		base := filepath.Join(dir, "cadence")
		paths = append(paths,
			filepath.Join(base, "config.toml"),
			filepath.Join(base, "config.yaml"),
		)
	}
	return paths
}

// Locate returns the first existing file from SearchPaths, or "".
func Locate() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Resolve builds the configuration from defaults, a file and the
// environment. An empty path searches SearchPaths and tolerates finding
// nothing; a named file must exist. environ is in os.Environ form.
//
// The returned slice lists CADENCE_ variables that were not recognised.
func Resolve(path string, environ []string) (Config, []string, error) {
	cfg := Default()
	if path == "" {
		path = Locate()
	}
	if path != "" {
		if err := loadInto(os.ReadFile, path, &cfg); err != nil {
			return Config{}, nil, err
		}
	}
	unknown, err := ApplyEnv(&cfg, environ)
	if err != nil {
		return Config{}, unknown, err
	}
	return cfg, unknown, cfg.Validate()
}
