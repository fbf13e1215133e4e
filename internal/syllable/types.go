package syllable

import (
	"strings"
)

// DisplaySeparator is placed between syllables by Hyphenated.
const DisplaySeparator = "·"

// WordResult is the syllable analysis of a single token.
type WordResult struct {
	// Word is the raw token as it appeared in the line.
	Word string `json:"word"`
	// Cleaned is Word with everything but letters and apostrophes removed.
	Cleaned string `json:"cleaned"`
	// SyllableCount is len(BreakPositions)+1, or 0 for an empty or
	// failed word.
	SyllableCount int `json:"syllableCount"`
	// BreakPositions are rune offsets into Cleaned.
	BreakPositions []int `json:"breakPositions"`
	// Success is false when the hyphenator failed for this word.
	Success bool `json:"success"`
	// Error holds the failure reason.
	Error string `json:"error,omitempty"`
}

// Hyphenated returns the cleaned word with sep between syllables, for
// example "beau·ti·ful". Single-syllable words are returned as cleaned;
// words that cleaned to nothing are returned as written.
func (w WordResult) Hyphenated(sep string) string {
	if w.Cleaned == "" {
		return w.Word
	}
	if len(w.BreakPositions) == 0 {
		return w.Cleaned
	}

	runes := []rune(w.Cleaned)
	var b strings.Builder
	prev := 0
	for _, p := range w.BreakPositions {
		if p <= prev || p >= len(runes) {
			continue
		}
		b.WriteString(string(runes[prev:p]))
		b.WriteString(sep)
		prev = p
	}
	b.WriteString(string(runes[prev:]))
	return b.String()
}

// LineResult is the aggregated analysis of one line. A LineResult is
// never mutated after Analyze returns it; re-analysis produces a new one.
type LineResult struct {
	// LineNumber is the 0-based line index.
	LineNumber int `json:"lineNumber"`
	// TotalSyllables is the sum of the words' syllable counts.
	TotalSyllables int `json:"totalSyllables"`
	// Words are in left-to-right order.
	Words []WordResult `json:"words"`
	// Success is true when no word failed.
	Success bool `json:"success"`
	// Errors has one `"<word>": <reason>` entry per failed word, nil when
	// there are none.
	Errors []string `json:"errors,omitempty"`
}

// HasErrors reports whether any word failed.
func (r LineResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Empty returns the result for a blank line.
func Empty(lineNumber int) LineResult {
	return LineResult{
		LineNumber: lineNumber,
		Words:      []WordResult{},
		Success:    true,
	}
}

// IsBlank reports whether text is empty or whitespace only.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
