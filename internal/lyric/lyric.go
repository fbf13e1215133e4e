// Package lyric classifies lines of a lyric sheet for presentation.
//
// Classification never affects analysis: every line is still segmented and
// counted. Viewers use the class to style section headers, chord lines and
// comments differently from sung text.
package lyric

import (
	"regexp"
	"strconv"
	"strings"
)

// Class is the kind of a lyric line.
type Class int

const (
	// Lyric is ordinary sung text.
	Lyric Class = iota
	// Blank is an empty or whitespace-only line.
	Blank
	// Section is a header such as "[Verse 2]" or "[Chorus]".
	Section
	// Chord is a bracketed chord line such as "[Am G/B C]".
	Chord
	// Comment is a line starting with '#'.
	Comment
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case Lyric:
		return "lyric"
	case Blank:
		return "blank"
	case Section:
		return "section"
	case Chord:
		return "chord"
	case Comment:
		return "comment"
	default:
		return "unknown"
	}
}

var (
	sectionRe = regexp.MustCompile(`(?i)^\s*\[(verse|chorus|bridge|pre-chorus|intro|outro|hook|refrain)(?:\s+(\d+))?\]\s*$`)
	chordRe   = regexp.MustCompile(`^\s*\[[\w#/\s]+\]\s*$`)
)

// Classify returns the class of a line. Section headers take precedence
// over chord lines.
func Classify(line string) Class {
	switch {
	case strings.TrimSpace(line) == "":
		return Blank
	case sectionRe.MatchString(line):
		return Section
	case chordRe.MatchString(line):
		return Chord
	case strings.HasPrefix(line, "#"):
		return Comment
	default:
		return Lyric
	}
}

// Header is a parsed section header.
type Header struct {
	// Name is the canonical lower-case section name, e.g. "pre-chorus".
	Name string

	// Number is the section number, or 0 when absent.
	Number int
}

// ParseSection parses a section header line.
func ParseSection(line string) (Header, bool) {
	m := sectionRe.FindStringSubmatch(line)
	if m == nil {
		return Header{}, false
	}
	h := Header{Name: strings.ToLower(m[1])}
	if m[2] != "" {
		// The pattern only admits digits; overflow leaves Number at 0.
		h.Number, _ = strconv.Atoi(m[2])
	}
	return h, true
}

// Sung reports whether lines of class c carry lyrics worth counting in
// document statistics.
func (c Class) Sung() bool {
	return c == Lyric
}
