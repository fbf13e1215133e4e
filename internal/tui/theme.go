package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/cadence/internal/gutter"
	"github.com/dshills/cadence/internal/lyric"
)

// Theme holds the viewer's styles.
type Theme struct {
	Text        tcell.Style
	Marker      tcell.Style
	LineNumber  tcell.Style
	CurrentLine tcell.Style
	Dim         tcell.Style
	Count       tcell.Style
	Error       tcell.Style
	Section     tcell.Style
	Chord       tcell.Style
	Comment     tcell.Style
	Status      tcell.Style
	Panel       tcell.Style

	// HeatLow and HeatHigh are the count colours for the shortest and
	// longest lines on screen.
	HeatLow  colorful.Color
	HeatHigh colorful.Color
}

// DefaultTheme returns the default theme.
func DefaultTheme() Theme {
	base := tcell.StyleDefault
	return Theme{
		Text:        base,
		Marker:      base.Foreground(tcell.ColorDarkCyan),
		LineNumber:  base.Foreground(tcell.ColorGray),
		CurrentLine: base.Foreground(tcell.ColorYellow).Bold(true),
		Dim:         base.Dim(true),
		Count:       base.Foreground(tcell.ColorGreen),
		Error:       base.Foreground(tcell.ColorRed).Bold(true),
		Section:     base.Foreground(tcell.ColorFuchsia).Bold(true),
		Chord:       base.Foreground(tcell.ColorTeal).Italic(true),
		Comment:     base.Foreground(tcell.ColorGray).Italic(true),
		Status:      base.Reverse(true),
		Panel:       base.Foreground(tcell.ColorRed),
		HeatLow:     colorful.Hsv(190, 0.55, 0.85),
		HeatHigh:    colorful.Hsv(10, 0.75, 0.95),
	}
}

// gutterStyle maps a gutter cell style to a theme style.
func (t Theme) gutterStyle(s gutter.CellStyle) tcell.Style {
	switch s {
	case gutter.StyleCurrentLine:
		return t.CurrentLine
	case gutter.StyleDim:
		return t.Dim
	case gutter.StyleCount:
		return t.Count
	case gutter.StyleError:
		return t.Error
	default:
		return t.LineNumber
	}
}

// classStyle returns the text style for a line class.
func (t Theme) classStyle(c lyric.Class) tcell.Style {
	switch c {
	case lyric.Section:
		return t.Section
	case lyric.Chord:
		return t.Chord
	case lyric.Comment:
		return t.Comment
	default:
		return t.Text
	}
}

// Heat returns the colour for count on a scale up to most, blended in
// HCL space between HeatLow and HeatHigh.
func (t Theme) Heat(count, most int) tcell.Color {
	amount := 0.0
	if most > 0 {
		amount = float64(count) / float64(most)
	}
	amount = min(max(amount, 0), 1)
	c := t.HeatLow.BlendHcl(t.HeatHigh, amount).Clamped()
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
