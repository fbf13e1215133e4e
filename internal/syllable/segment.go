package syllable

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Token is a run of non-whitespace characters in a line.
type Token struct {
	// Text is the token as written.
	Text string
	// Offset is the byte offset of the token in the line.
	Offset int
	// Column is the display column where the token starts, counting
	// wide characters as two cells and tabs as one.
	Column int
}

// Segment splits line into tokens separated by whitespace.
func Segment(line string) []Token {
	var tokens []Token

	start := -1
	column := 0
	gapStart := 0

	flush := func(end int) {
		column += displayWidth(line[gapStart:start])
		tokens = append(tokens, Token{
			Text:   line[start:end],
			Offset: start,
			Column: column,
		})
		column += displayWidth(line[start:end])
		gapStart = end
		start = -1
	}

	for i, r := range line {
		if unicode.IsSpace(r) {
			if start >= 0 {
				flush(i)
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		flush(len(line))
	}
	return tokens
}

func displayWidth(s string) int {
	w := uniseg.StringWidth(s)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\t' {
			w++
		}
		i += size
	}
	return w
}
