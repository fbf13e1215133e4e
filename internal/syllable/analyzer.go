package syllable

import (
	"fmt"
	"unicode/utf8"

	"github.com/dshills/cadence/internal/hyphen"
)

// Analyzer computes LineResults using a hyphenator.
//
// An Analyzer is safe for concurrent use if its hyphenator is.
type Analyzer struct {
	hyphenator hyphen.Hyphenator
}

// NewAnalyzer creates an analyzer. A nil hyphenator selects the built-in
// vowel-group heuristic.
func NewAnalyzer(h hyphen.Hyphenator) *Analyzer {
	if h == nil {
		h = hyphen.NewHeuristic()
	}
	return &Analyzer{hyphenator: h}
}

// Analyze segments text and counts syllables for every word.
func (a *Analyzer) Analyze(lineNumber int, text string) LineResult {
	tokens := Segment(text)

	result := LineResult{
		LineNumber: lineNumber,
		Words:      make([]WordResult, 0, len(tokens)),
		Success:    true,
	}

	for _, tok := range tokens {
		w := a.AnalyzeWord(tok.Text)
		result.Words = append(result.Words, w)
		result.TotalSyllables += w.SyllableCount
		if !w.Success {
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("%q: %s", w.Word, w.Error))
		}
	}
	return result
}

// AnalyzeWord cleans and hyphenates a single token.
func (a *Analyzer) AnalyzeWord(word string) WordResult {
	cleaned := Clean(word)
	if cleaned == "" {
		return WordResult{
			Word:           word,
			BreakPositions: []int{},
			Success:        true,
		}
	}

	positions, err := a.hyphenate(cleaned)
	if err == nil {
		err = validatePositions(positions, utf8.RuneCountInString(cleaned))
	}
	if err != nil {
		return WordResult{
			Word:           word,
			Cleaned:        cleaned,
			BreakPositions: []int{},
			Error:          err.Error(),
		}
	}

	out := make([]int, len(positions))
	copy(out, positions)
	return WordResult{
		Word:           word,
		Cleaned:        cleaned,
		SyllableCount:  len(out) + 1,
		BreakPositions: out,
		Success:        true,
	}
}

// hyphenate calls the hyphenator, converting a panic into an error.
func (a *Analyzer) hyphenate(word string) (positions []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hyphenator panic: %v", r)
		}
	}()
	return a.hyphenator.Hyphenate(word)
}

func validatePositions(positions []int, n int) error {
	prev := 0
	for _, p := range positions {
		if p <= prev || p >= n {
			return fmt.Errorf("%w %v for %d-rune word", ErrInvalidPositions, positions, n)
		}
		prev = p
	}
	return nil
}
