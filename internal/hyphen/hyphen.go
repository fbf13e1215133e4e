// Package hyphen provides syllable-boundary detection for single words.
//
// A Hyphenator receives a cleaned word (letters and apostrophes only) and
// returns break positions as rune offsets into that word. Offsets are
// strictly increasing and lie strictly between 0 and the word's rune length.
// Implementations are selected per language through a Registry.
package hyphen

// Hyphenator finds syllable boundaries in a word.
type Hyphenator interface {
	// Hyphenate returns the rune offsets at which word may be broken.
	Hyphenate(word string) ([]int, error)
}

// Func adapts a plain function to the Hyphenator interface.
type Func func(word string) ([]int, error)

// Hyphenate calls f(word).
func (f Func) Hyphenate(word string) ([]int, error) {
	return f(word)
}
