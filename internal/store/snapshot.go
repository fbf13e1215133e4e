package store

import (
	"sort"

	"github.com/dshills/cadence/internal/syllable"
)

// Snapshot is a read-only view of the store at one point in time.
type Snapshot struct {
	lines map[int]syllable.LineResult
}

// Get returns the result for a line.
func (s Snapshot) Get(line int) (syllable.LineResult, bool) {
	r, ok := s.lines[line]
	return r, ok
}

// Len returns the number of lines with a result.
func (s Snapshot) Len() int {
	return len(s.lines)
}

// Lines returns the line numbers with a result in ascending order.
func (s Snapshot) Lines() []int {
	out := make([]int, 0, len(s.lines))
	for k := range s.lines {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Stats summarizes a snapshot.
type Stats struct {
	// LinesWithData counts lines holding a result, including blank and
	// section lines stored with an empty result.
	LinesWithData int

	// SungLines counts lines with at least one syllable.
	SungLines int

	// Words counts words with letters.
	Words int

	// Syllables is the total across all lines.
	Syllables int

	// ErrorLines counts lines with at least one failed word.
	ErrorLines int

	// AveragePerLine is Syllables / SungLines, or 0 with no sung lines.
	// Blank and section lines would otherwise drag the average down.
	AveragePerLine float64
}

// Stats computes the document statistics.
func (s Snapshot) Stats() Stats {
	st := Stats{LinesWithData: len(s.lines)}
	for _, r := range s.lines {
		if r.TotalSyllables > 0 {
			st.SungLines++
		}
		st.Syllables += r.TotalSyllables
		if r.HasErrors() {
			st.ErrorLines++
		}
		for _, w := range r.Words {
			if w.Cleaned != "" {
				st.Words++
			}
		}
	}
	if st.SungLines > 0 {
		st.AveragePerLine = float64(st.Syllables) / float64(st.SungLines)
	}
	return st
}
