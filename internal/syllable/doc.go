// Package syllable splits lyric lines into words and counts their
// syllables.
//
// The package is pure: Analyze has no side effects and returns the same
// LineResult for the same input, so it can run on a background worker or
// in-process with identical results.
//
// # Pipeline
//
//	line ─▶ Segment ─▶ tokens ─▶ Clean ─▶ Hyphenator ─▶ WordResult ─▶ LineResult
//
// Segment splits on whitespace only; punctuation stays attached to the
// token and is removed by Clean, which keeps letters and apostrophes.
// Words that clean to nothing ("--", "123") count zero syllables and
// never reach the hyphenator. A hyphenator failure or panic marks that
// single word as failed without aborting the line.
//
// # Offsets
//
// Break positions are rune offsets into WordResult.Cleaned. They are
// strictly increasing and lie strictly inside the word, and
// SyllableCount is always len(BreakPositions)+1 for a successful,
// non-empty word.
package syllable
