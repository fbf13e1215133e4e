package syllable

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean strips everything but letters and apostrophes from word.
//
// The word is NFC-normalized first so that a letter followed by a
// combining accent survives as one precomposed letter instead of losing
// its mark. Typographic apostrophes are folded to ASCII.
func Clean(word string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case isApostrophe(r):
			return '\''
		case unicode.IsLetter(r):
			return r
		default:
			return -1
		}
	}, norm.NFC.String(word))
}

// IsWordRune reports whether Clean keeps r.
func IsWordRune(r rune) bool {
	return isApostrophe(r) || unicode.IsLetter(r)
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’' || r == 'ʼ'
}
