package hyphen

import (
	"strings"
	"unicode"
)

// Heuristic splits words between vowel groups. It needs no pattern data
// and is the built-in default for languages without a pattern file.
//
// Rules, applied between each pair of adjacent vowel groups:
//   - one consonant between them starts the next syllable (ti-ger)
//   - two or more consonants are split after the first (hel-lo), unless
//     the pair is a digraph kept together (mo-ther)
//   - a final consonant + "le" forms its own syllable (ta-ble)
//   - a lone final "e" is silent and does not form a syllable (make)
type Heuristic struct{}

// NewHeuristic returns a vowel-group hyphenator.
func NewHeuristic() Heuristic {
	return Heuristic{}
}

var digraphs = map[string]bool{
	"ch": true, "ph": true, "sh": true, "th": true, "wh": true, "gh": true,
}

type span struct{ start, end int }

// Hyphenate returns break positions for word.
func (Heuristic) Hyphenate(word string) ([]int, error) {
	runes := []rune(strings.Map(unicode.ToLower, word))
	n := len(runes)
	if n < 2 {
		return nil, nil
	}

	groups := vowelGroups(runes)

	// Silent final e: "make" has one syllable, "table" keeps its "le".
	if len(groups) > 1 {
		last := groups[len(groups)-1]
		if last.start == n-1 && runes[n-1] == 'e' && !isConsonantLE(runes) {
			groups = groups[:len(groups)-1]
		}
	}

	var positions []int
	for i := 0; i+1 < len(groups); i++ {
		prev, next := groups[i], groups[i+1]
		consonants := next.start - prev.end

		brk := prev.end
		switch {
		case consonants <= 1:
			// V-CV
		case i+1 == len(groups)-1 && isConsonantLE(runes) && next.start == n-1:
			brk = next.start - 2
		case consonants == 2 && digraphs[string(runes[prev.end:next.start])]:
			// keep the digraph with the following vowel
		default:
			brk = prev.end + 1
		}

		if brk <= 0 || brk >= n {
			continue
		}
		if len(positions) > 0 && brk <= positions[len(positions)-1] {
			continue
		}
		positions = append(positions, brk)
	}
	return positions, nil
}

// vowelGroups returns maximal runs of vowels. A leading y is a consonant.
func vowelGroups(runes []rune) []span {
	var groups []span
	start := -1
	for i, r := range runes {
		v := isVowel(r) && !(r == 'y' && i == 0)
		switch {
		case v && start < 0:
			start = i
		case !v && start >= 0:
			groups = append(groups, span{start, i})
			start = -1
		}
	}
	if start >= 0 {
		groups = append(groups, span{start, len(runes)})
	}
	return groups
}

// isConsonantLE reports whether the word ends in consonant + "le".
func isConsonantLE(runes []rune) bool {
	n := len(runes)
	if n < 3 || runes[n-1] != 'e' || runes[n-2] != 'l' {
		return false
	}
	c := runes[n-3]
	return unicode.IsLetter(c) && !isVowel(c)
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y',
		'à', 'á', 'â', 'ã', 'ä', 'å', 'æ',
		'è', 'é', 'ê', 'ë',
		'ì', 'í', 'î', 'ï',
		'ò', 'ó', 'ô', 'õ', 'ö', 'ø', 'œ',
		'ù', 'ú', 'û', 'ü', 'ý', 'ÿ':
		return true
	}
	return false
}
