// Package gutter formats the columns shown to the left of lyric text: line
// numbers and per-line syllable counts.
package gutter

import (
	"strconv"
	"sync"

	"github.com/rivo/uniseg"

	"github.com/dshills/cadence/internal/syllable"
)

// Config holds gutter configuration.
type Config struct {
	// ShowLineNumbers enables the line number column.
	ShowLineNumbers bool

	// MinLineNumberWidth is the minimum line number width.
	MinLineNumberWidth int

	// ShowCounts enables the syllable count column.
	ShowCounts bool

	// CountWidth is the fixed count column width (0 = auto).
	CountWidth int

	// MinCountWidth is the minimum auto-calculated count width.
	MinCountWidth int

	// ErrorMarker follows the count on lines with failed words.
	ErrorMarker rune
}

// DefaultConfig returns the default gutter configuration.
func DefaultConfig() Config {
	return Config{
		ShowLineNumbers:    true,
		MinLineNumberWidth: 3,
		ShowCounts:         true,
		CountWidth:         0, // Auto
		MinCountWidth:      2,
		ErrorMarker:        '!',
	}
}

// CellStyle describes how to style a gutter cell.
type CellStyle uint8

const (
	StyleNormal CellStyle = iota
	StyleCurrentLine
	StyleDim
	StyleCount
	StyleError
)

// Cell is a single gutter cell.
type Cell struct {
	Rune  rune
	Style CellStyle
}

// Source looks up analysis results by line.
type Source interface {
	Get(line int) (syllable.LineResult, bool)
}

// Gutter lays out the gutter columns.
type Gutter struct {
	mu sync.RWMutex

	config      Config
	lineCount   int
	currentLine int
	maxCount    int
	width       int
}

// New creates a gutter.
func New(config Config) *Gutter {
	g := &Gutter{config: config, lineCount: 1}
	g.width = g.calculateWidth()
	return g
}

// Width returns the total gutter width including the separator column.
func (g *Gutter) Width() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.width
}

// Config returns the current configuration.
func (g *Gutter) Config() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.config
}

// SetLineCount updates the document length used to size line numbers.
func (g *Gutter) SetLineCount(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lineCount = n
	g.width = g.calculateWidth()
}

// SetMaxCount updates the largest syllable count used to size the count
// column.
func (g *Gutter) SetMaxCount(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxCount = n
	g.width = g.calculateWidth()
}

// SetCurrentLine updates the highlighted line.
func (g *Gutter) SetCurrentLine(line int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentLine = line
}

// Measure sizes the gutter for lines [0, lineCount) of src.
func (g *Gutter) Measure(src Source, lineCount int) {
	most := 0
	for i := 0; i < lineCount; i++ {
		if r, ok := src.Get(i); ok && r.TotalSyllables > most {
			most = r.TotalSyllables
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lineCount = lineCount
	g.maxCount = most
	g.width = g.calculateWidth()
}

// RenderLine renders the gutter for one line. exists is false past the end
// of the document; r is nil when the line has not been analyzed.
func (g *Gutter) RenderLine(line int, exists bool, r *syllable.LineResult) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.width == 0 {
		return nil
	}
	cells := make([]Cell, g.width)
	for i := range cells {
		cells[i] = Cell{Rune: ' ', Style: StyleNormal}
	}
	col := 0

	if g.config.ShowLineNumbers {
		numWidth := g.lineNumberWidth()
		text := "~"
		style := StyleDim
		if exists {
			text = strconv.Itoa(line + 1)
			if line == g.currentLine {
				style = StyleCurrentLine
			}
		}
		col = put(cells, col, PadLeft(text, numWidth), style)
		col++ // space between columns
	}

	if g.config.ShowCounts {
		countWidth := g.countWidth()
		text, style := "", StyleCount
		if exists && r != nil {
			text, style = FormatCount(*r, g.config.ErrorMarker)
		}
		put(cells, col, PadLeft(text, countWidth), style)
	}

	return cells
}

func put(cells []Cell, col int, s string, style CellStyle) int {
	for _, r := range s {
		if col >= len(cells)-1 {
			break
		}
		cells[col] = Cell{Rune: r, Style: style}
		col++
	}
	return col
}

func (g *Gutter) lineNumberWidth() int {
	return max(countDigits(g.lineCount), g.config.MinLineNumberWidth)
}

func (g *Gutter) countWidth() int {
	if g.config.CountWidth > 0 {
		return g.config.CountWidth
	}
	w := countDigits(g.maxCount)
	if g.config.ErrorMarker != 0 {
		w++
	}
	return max(w, g.config.MinCountWidth)
}

func (g *Gutter) calculateWidth() int {
	width := 0
	if g.config.ShowLineNumbers {
		width += g.lineNumberWidth() + 1
	}
	if g.config.ShowCounts {
		width += g.countWidth()
	}
	if width > 0 {
		width++ // separator
	}
	return width
}

// FormatCount returns the count column text for a line: blank for zero
// syllables, the count otherwise, followed by marker when a word failed.
func FormatCount(r syllable.LineResult, marker rune) (string, CellStyle) {
	text := ""
	if r.TotalSyllables > 0 {
		text = strconv.Itoa(r.TotalSyllables)
	}
	if r.HasErrors() {
		if marker != 0 {
			text += string(marker)
		}
		return text, StyleError
	}
	return text, StyleCount
}

// PadLeft pads s with spaces on the left to width display cells.
func PadLeft(s string, width int) string {
	n := uniseg.StringWidth(s)
	if n >= width {
		return s
	}
	b := make([]byte, 0, width-n+len(s))
	for i := n; i < width; i++ {
		b = append(b, ' ')
	}
	return string(append(b, s...))
}

func countDigits(n int) int {
	if n <= 0 {
		return 1
	}
	digits := 0
	for n > 0 {
		digits++
		n /= 10
	}
	return digits
}
