package gutter

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dshills/cadence/internal/syllable"
)

// Strategy selects how syllable breaks are shown in the text itself.
type Strategy int

const (
	// StrategyNone leaves the text as written.
	StrategyNone Strategy = iota

	// StrategyInline inserts a marker at each break inside the word,
	// keeping punctuation and case.
	StrategyInline

	// StrategyReplace replaces each multi-syllable word with its cleaned,
	// separator-delimited form ("beau·ti·ful").
	StrategyReplace
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyInline:
		return "inline"
	case StrategyReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name.
func ParseStrategy(name string) (Strategy, bool) {
	switch strings.ToLower(name) {
	case "none", "":
		return StrategyNone, true
	case "inline":
		return StrategyInline, true
	case "replace":
		return StrategyReplace, true
	}
	return StrategyNone, false
}

// Piece is a run of display text. Marker pieces are inserted separators.
type Piece struct {
	Text   string
	Marker bool
}

// Decorate splits line into pieces with syllable markers applied. A result
// that does not match the line (stale or from another line) leaves the
// text unchanged.
func Decorate(line string, r syllable.LineResult, s Strategy, marker string) []Piece {
	tokens := syllable.Segment(line)
	if s == StrategyNone || len(tokens) != len(r.Words) {
		return []Piece{{Text: line}}
	}

	var pieces []Piece
	emit := func(text string, isMarker bool) {
		if text == "" {
			return
		}
		if n := len(pieces); n > 0 && !isMarker && !pieces[n-1].Marker {
			pieces[n-1].Text += text
			return
		}
		pieces = append(pieces, Piece{Text: text, Marker: isMarker})
	}

	prev := 0
	for i, tok := range tokens {
		w := r.Words[i]
		emit(line[prev:tok.Offset], false)
		prev = tok.Offset + len(tok.Text)

		if w.Word != tok.Text || len(w.BreakPositions) == 0 {
			emit(tok.Text, false)
			continue
		}

		switch s {
		case StrategyReplace:
			parts := strings.Split(w.Hyphenated("\x00"), "\x00")
			for j, p := range parts {
				if j > 0 {
					emit(marker, true)
				}
				emit(p, false)
			}
		case StrategyInline:
			offsets := markerOffsets(tok.Text, w.BreakPositions)
			if offsets == nil {
				emit(tok.Text, false)
				continue
			}
			last := 0
			for _, off := range offsets {
				emit(tok.Text[last:off], false)
				emit(marker, true)
				last = off
			}
			emit(tok.Text[last:], false)
		}
	}
	emit(line[prev:], false)
	return pieces
}

// Render joins the decorated pieces into one string.
func Render(line string, r syllable.LineResult, s Strategy, marker string) string {
	var b strings.Builder
	for _, p := range Decorate(line, r, s, marker) {
		b.WriteString(p.Text)
	}
	return b.String()
}

// markerOffsets maps break positions, which are rune offsets into the
// cleaned word, to byte offsets in the token as written. It returns nil
// when the token is not in NFC form, since cleaning would then have
// changed its runes.
func markerOffsets(token string, positions []int) []int {
	if !norm.NFC.IsNormalString(token) {
		return nil
	}
	offsets := make([]int, 0, len(positions))
	kept := 0
	next := 0
	for i, r := range token {
		if !syllable.IsWordRune(r) {
			continue
		}
		if next < len(positions) && kept == positions[next] {
			offsets = append(offsets, i)
			next++
		}
		kept++
	}
	if next != len(positions) {
		return nil
	}
	return offsets
}
