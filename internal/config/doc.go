// Package config provides cadence's configuration.
//
// Configuration is resolved in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment (CADENCE_*) │
//	├─────────────────────────────┤
//	│  2. Config File             │  ← cadence.toml / cadence.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Flags are applied by the command line; this package handles the rest.
//
// # Configuration Files
//
// TOML is the primary format. YAML and JSON are accepted by extension:
//
//	# ~/.config/cadence/config.toml
//	[analysis]
//	language = "en-US"
//	patterns = "~/.local/share/hyph/hyph-en-us.tex"
//
//	[coordinator]
//	channel = "process"
//	requestTimeout = "2s"
//
//	[session]
//	debounce = "250ms"
//
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
//
// # Error Handling
//
//   - ErrFileNotFound: an explicitly named file does not exist
//   - ErrUnsupportedFormat: the file extension is not recognised
//   - *ParseError: the file could not be decoded
//   - *ValidationError: a value is out of range (matches ErrValidationFailed)
package config
