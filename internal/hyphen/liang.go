package hyphen

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default minimum fragment lengths on either side of a break.
const (
	DefaultLeftMin  = 2
	DefaultRightMin = 2
)

// Liang implements Franklin Liang's pattern-based hyphenation algorithm,
// the one used by TeX. Patterns and exceptions are loaded from TeX-style
// sources; the engine itself holds no language data.
//
// A Liang is safe for concurrent use once loading has finished.
type Liang struct {
	patterns   map[string][]uint8
	exceptions map[string][]int
	maxLen     int

	leftMin  int
	rightMin int
	lang     language.Tag
}

// LiangOption configures a Liang hyphenator.
type LiangOption func(*Liang)

// WithLeftMin sets the minimum number of runes before the first break.
func WithLeftMin(n int) LiangOption {
	return func(l *Liang) {
		if n > 0 {
			l.leftMin = n
		}
	}
}

// WithRightMin sets the minimum number of runes after the last break.
func WithRightMin(n int) LiangOption {
	return func(l *Liang) {
		if n > 0 {
			l.rightMin = n
		}
	}
}

// WithLanguage selects the case mapping used to fold words before matching.
func WithLanguage(tag language.Tag) LiangOption {
	return func(l *Liang) {
		l.lang = tag
	}
}

// NewLiang creates an empty Liang hyphenator.
func NewLiang(opts ...LiangOption) *Liang {
	l := &Liang{
		patterns:   make(map[string][]uint8),
		exceptions: make(map[string][]int),
		leftMin:    DefaultLeftMin,
		rightMin:   DefaultRightMin,
		lang:       language.Und,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadLiang reads patterns and exceptions from r.
//
// The accepted format is the TeX one: `%` starts a comment, patterns live
// in a \patterns{...} block and exceptions in a \hyphenation{...} block.
// Tokens outside any block are treated as patterns so plain pattern lists
// load as well.
func LoadLiang(r io.Reader, source string, opts ...LiangOption) (*Liang, error) {
	l := NewLiang(opts...)

	const (
		modePatterns = iota
		modeExceptions
	)
	mode := modePatterns

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '%'); i >= 0 {
			line = line[:i]
		}
		for _, tok := range strings.Fields(line) {
			switch {
			case strings.HasPrefix(tok, `\patterns`):
				mode = modePatterns
				tok = afterBrace(tok)
			case strings.HasPrefix(tok, `\hyphenation`):
				mode = modeExceptions
				tok = afterBrace(tok)
			case strings.HasPrefix(tok, `\`):
				continue
			}

			closing := strings.HasSuffix(tok, "}")
			tok = strings.TrimSuffix(tok, "}")

			if tok != "" {
				var err error
				if mode == modeExceptions {
					err = l.AddException(tok)
				} else {
					err = l.AddPattern(tok)
				}
				if err != nil {
					return nil, &ParseError{Source: source, Line: lineNo, Token: tok, Err: err}
				}
			}
			if closing {
				mode = modePatterns
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading patterns %s: %w", source, err)
	}
	return l, nil
}

func afterBrace(tok string) string {
	if i := strings.IndexByte(tok, '{'); i >= 0 {
		return tok[i+1:]
	}
	return ""
}

// AddPattern adds a single Liang pattern such as "a1b" or ".ab4c".
func (l *Liang) AddPattern(p string) error {
	letters := make([]rune, 0, len(p))
	values := []uint8{0}
	lastDigit := false

	for _, r := range p {
		if r >= '0' && r <= '9' {
			if lastDigit {
				return fmt.Errorf("%w: consecutive digits", ErrInvalidPattern)
			}
			values[len(values)-1] = uint8(r - '0')
			lastDigit = true
			continue
		}
		letters = append(letters, unicode.ToLower(r))
		values = append(values, 0)
		lastDigit = false
	}

	if len(letters) == 0 {
		return fmt.Errorf("%w: no letters", ErrInvalidPattern)
	}

	key := string(letters)
	if existing, ok := l.patterns[key]; ok {
		for i, v := range values {
			if v > existing[i] {
				existing[i] = v
			}
		}
	} else {
		l.patterns[key] = values
	}
	if len(letters) > l.maxLen {
		l.maxLen = len(letters)
	}
	return nil
}

// AddException adds a hyphenation exception written with explicit
// hyphens, e.g. "ta-ble".
func (l *Liang) AddException(e string) error {
	var (
		word      []rune
		positions []int
	)
	for _, r := range e {
		if r == '-' {
			if len(word) == 0 {
				return fmt.Errorf("%w: leading hyphen", ErrInvalidPattern)
			}
			positions = append(positions, len(word))
			continue
		}
		word = append(word, unicode.ToLower(r))
	}
	if len(word) == 0 {
		return fmt.Errorf("%w: empty exception", ErrInvalidPattern)
	}
	if n := len(positions); n > 0 && positions[n-1] >= len(word) {
		return fmt.Errorf("%w: trailing hyphen", ErrInvalidPattern)
	}
	l.exceptions[string(word)] = positions
	return nil
}

// PatternCount returns the number of distinct patterns loaded.
func (l *Liang) PatternCount() int {
	return len(l.patterns)
}

// Hyphenate returns the break positions for word.
func (l *Liang) Hyphenate(word string) ([]int, error) {
	n := utf8.RuneCountInString(word)
	if n == 0 {
		return nil, nil
	}

	// A Caser carries state, so each call gets its own.
	lower := cases.Lower(l.lang).String(word)
	if utf8.RuneCountInString(lower) != n {
		// Special casings such as dotted capital I change the rune count;
		// offsets must stay aligned with the input.
		lower = strings.Map(unicode.ToLower, word)
	}

	if positions, ok := l.exceptions[lower]; ok {
		out := make([]int, 0, len(positions))
		for _, p := range positions {
			if p > 0 && p < n {
				out = append(out, p)
			}
		}
		return out, nil
	}

	if n < l.leftMin+l.rightMin {
		return nil, nil
	}

	dotted := make([]rune, 0, n+2)
	dotted = append(dotted, '.')
	dotted = append(dotted, []rune(lower)...)
	dotted = append(dotted, '.')

	// values[i] is the score of the gap before dotted[i].
	values := make([]uint8, len(dotted)+1)
	for i := range dotted {
		end := min(len(dotted), i+l.maxLen)
		for j := i + 1; j <= end; j++ {
			pattern, ok := l.patterns[string(dotted[i:j])]
			if !ok {
				continue
			}
			for k, v := range pattern {
				if v > values[i+k] {
					values[i+k] = v
				}
			}
		}
	}

	var positions []int
	for k := l.leftMin; k <= n-l.rightMin; k++ {
		// The gap before word rune k sits before dotted[k+1].
		if values[k+1]%2 == 1 {
			positions = append(positions, k)
		}
	}
	return positions, nil
}
