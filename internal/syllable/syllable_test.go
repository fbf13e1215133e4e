package syllable

import (
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dshills/cadence/internal/hyphen"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		line string
		want []Token
	}{
		{"", nil},
		{"   ", nil},
		{"hello", []Token{{Text: "hello", Offset: 0, Column: 0}}},
		{"  hello   world\t", []Token{
			{Text: "hello", Offset: 2, Column: 2},
			{Text: "world", Offset: 10, Column: 10},
		}},
		{"# comment", []Token{
			{Text: "#", Offset: 0, Column: 0},
			{Text: "comment", Offset: 2, Column: 2},
		}},
		{"日本 語", []Token{
			{Text: "日本", Offset: 0, Column: 0},
			{Text: "語", Offset: 7, Column: 5},
		}},
	}

	for _, tt := range tests {
		got := Segment(tt.line)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Segment(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello,", "Hello"},
		{"don't", "don't"},
		{"rock’n’roll", "rock'n'roll"},
		{"--", ""},
		{"123abc!", "abc"},
		{"(oh)", "oh"},
		{"été", "été"},
		{"Grüße", "Grüße"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnalyze_Beautiful(t *testing.T) {
	a := NewAnalyzer(nil)
	r := a.Analyze(0, "beautiful")

	if len(r.Words) != 1 {
		t.Fatalf("got %d words, want 1", len(r.Words))
	}
	w := r.Words[0]
	if w.SyllableCount < 2 {
		t.Errorf("SyllableCount = %d, want >= 2", w.SyllableCount)
	}
	if len(w.BreakPositions) == 0 {
		t.Error("BreakPositions is empty")
	}
	if r.TotalSyllables != w.SyllableCount {
		t.Errorf("TotalSyllables = %d, want %d", r.TotalSyllables, w.SyllableCount)
	}
	if got := w.Hyphenated(DisplaySeparator); got != "beau·ti·ful" {
		t.Errorf("Hyphenated = %q, want beau·ti·ful", got)
	}
}

func TestAnalyze_EmptyLine(t *testing.T) {
	a := NewAnalyzer(nil)
	r := a.Analyze(4, "")

	want := Empty(4)
	if !reflect.DeepEqual(r, want) {
		t.Errorf("Analyze(\"\") = %+v, want %+v", r, want)
	}
	if r.Words == nil {
		t.Error("Words should be an empty, non-nil slice")
	}
}

func TestAnalyze_CommentLineIsSegmented(t *testing.T) {
	a := NewAnalyzer(nil)
	r := a.Analyze(0, "# comment")

	if len(r.Words) != 2 {
		t.Fatalf("got %d words, want 2", len(r.Words))
	}
	if r.Words[0].SyllableCount != 0 || r.Words[0].Cleaned != "" {
		t.Errorf("'#' = %+v, want zero-syllable empty word", r.Words[0])
	}
	if r.Words[1].SyllableCount != 2 {
		t.Errorf("'comment' syllables = %d, want 2", r.Words[1].SyllableCount)
	}
	if r.TotalSyllables != 2 {
		t.Errorf("TotalSyllables = %d, want 2", r.TotalSyllables)
	}
}

func TestAnalyze_WordFailureDoesNotAbortLine(t *testing.T) {
	h := hyphen.Func(func(word string) ([]int, error) {
		if word == "bad" {
			return nil, errors.New("boom")
		}
		return nil, nil
	})
	a := NewAnalyzer(h)
	r := a.Analyze(2, "good bad word")

	if r.Success {
		t.Error("Success = true, want false")
	}
	if want := []string{`"bad": boom`}; !reflect.DeepEqual(r.Errors, want) {
		t.Errorf("Errors = %v, want %v", r.Errors, want)
	}
	if len(r.Words) != 3 {
		t.Fatalf("got %d words, want 3", len(r.Words))
	}
	bad := r.Words[1]
	if bad.Success || bad.SyllableCount != 0 || bad.Error != "boom" {
		t.Errorf("failed word = %+v", bad)
	}
	if r.TotalSyllables != 2 {
		t.Errorf("TotalSyllables = %d, want 2", r.TotalSyllables)
	}
}

func TestAnalyze_HyphenatorPanic(t *testing.T) {
	h := hyphen.Func(func(string) ([]int, error) {
		panic("kaboom")
	})
	r := NewAnalyzer(h).Analyze(0, "word")

	if r.Success {
		t.Fatal("Success = true after panic")
	}
	if !strings.Contains(r.Words[0].Error, "hyphenator panic: kaboom") {
		t.Errorf("Error = %q", r.Words[0].Error)
	}
}

func TestAnalyze_InvalidPositions(t *testing.T) {
	tests := [][]int{
		{0},
		{3},
		{2, 1},
		{1, 1},
		{-1},
	}
	for _, positions := range tests {
		p := positions
		h := hyphen.Func(func(string) ([]int, error) { return p, nil })
		w := NewAnalyzer(h).AnalyzeWord("abc")
		if w.Success {
			t.Errorf("positions %v accepted", p)
		}
		if !strings.Contains(w.Error, ErrInvalidPositions.Error()) {
			t.Errorf("positions %v error = %q", p, w.Error)
		}
	}
}

func TestAnalyze_SkipsHyphenatorForEmptyWords(t *testing.T) {
	var calls atomic.Int32
	h := hyphen.Func(func(string) ([]int, error) {
		calls.Add(1)
		return nil, nil
	})
	r := NewAnalyzer(h).Analyze(0, "-- 123 ... ok")

	if calls.Load() != 1 {
		t.Errorf("hyphenator called %d times, want 1", calls.Load())
	}
	if r.TotalSyllables != 1 {
		t.Errorf("TotalSyllables = %d, want 1", r.TotalSyllables)
	}
}

func TestAnalyze_CopiesPositions(t *testing.T) {
	shared := []int{1}
	h := hyphen.Func(func(string) ([]int, error) { return shared, nil })
	w := NewAnalyzer(h).AnalyzeWord("ab")
	shared[0] = 99
	if w.BreakPositions[0] != 1 {
		t.Error("WordResult aliases the hyphenator's slice")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := NewAnalyzer(nil)
	line := "Hello darkness, my old friend — I've come to talk with you again"
	first := a.Analyze(7, line)
	second := a.Analyze(7, line)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestWordResult_Hyphenated(t *testing.T) {
	tests := []struct {
		w    WordResult
		want string
	}{
		{WordResult{Word: "cat!", Cleaned: "cat", BreakPositions: []int{}}, "cat"},
		{WordResult{Word: "--", Cleaned: ""}, "--"},
		{WordResult{Word: "table", Cleaned: "table", BreakPositions: []int{2}}, "ta-ble"},
		{WordResult{Word: "été", Cleaned: "été", BreakPositions: []int{1}}, "é-té"},
	}
	for _, tt := range tests {
		if got := tt.w.Hyphenated("-"); got != tt.want {
			t.Errorf("Hyphenated(%+v) = %q, want %q", tt.w, got, tt.want)
		}
	}
}

func TestIsBlank(t *testing.T) {
	for _, s := range []string{"", " ", "\t\n "} {
		if !IsBlank(s) {
			t.Errorf("IsBlank(%q) = false", s)
		}
	}
	if IsBlank(" a ") {
		t.Error("IsBlank(\" a \") = true")
	}
}
