package hyphen

import (
	"errors"
	"fmt"
)

// Standard errors returned by hyphenators.
var (
	// ErrNoHyphenator indicates no hyphenator is registered for a language.
	ErrNoHyphenator = errors.New("no hyphenator for language")

	// ErrInvalidPattern indicates a malformed Liang pattern.
	ErrInvalidPattern = errors.New("invalid hyphenation pattern")

	// ErrInvalidLanguage indicates an unparseable language tag.
	ErrInvalidLanguage = errors.New("invalid language tag")
)

// ParseError reports a problem in a pattern file.
type ParseError struct {
	Source string
	Line   int
	Token  string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %q: %v", e.Source, e.Line, e.Token, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
