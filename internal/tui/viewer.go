// Package tui is a minimal terminal viewer for an analyzed lyric sheet.
//
// The viewer is read-only: it draws the session's document with a gutter of
// line numbers and syllable counts, decorates sung lines with syllable
// breaks, and redraws whenever the session's store changes.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/cadence/internal/coordinator"
	"github.com/dshills/cadence/internal/gutter"
	"github.com/dshills/cadence/internal/logging"
	"github.com/dshills/cadence/internal/lyric"
	"github.com/dshills/cadence/internal/session"
	"github.com/dshills/cadence/internal/store"
	"github.com/dshills/cadence/internal/syllable"
)

// maxPanelRows bounds the error panel height.
const maxPanelRows = 5

// Options configures a Viewer.
type Options struct {
	// Title is shown in the status line.
	Title string

	// Strategy is the initial decoration strategy.
	Strategy gutter.Strategy

	// Marker is the break marker. Default: "·"
	Marker string

	// Heat colours counts by length relative to the longest visible line.
	Heat bool

	// Gutter configures the gutter columns.
	Gutter gutter.Config

	// Theme overrides DefaultTheme when non-nil.
	Theme *Theme

	// Health reports channel health for the status line. Optional.
	Health func() coordinator.Health

	// Logger receives viewer logs. Nil discards them.
	Logger *logging.Logger
}

// DefaultOptions returns the default viewer options.
func DefaultOptions() Options {
	return Options{
		Strategy: gutter.StrategyInline,
		Marker:   syllable.DisplaySeparator,
		Heat:     true,
		Gutter:   gutter.DefaultConfig(),
	}
}

// quitEvent is posted to stop Run.
type quitEvent struct{}

// Viewer draws a session on a tcell screen.
type Viewer struct {
	screen tcell.Screen
	sess   *session.Session
	opts   Options
	theme  Theme
	gutter *gutter.Gutter
	logger *logging.Logger

	// redraw is set while a redraw event is queued.
	redraw atomic.Bool

	mu         sync.Mutex
	top        int
	cursor     int
	pageRows   int
	strategy   gutter.Strategy
	heat       bool
	showErrors bool
	message    string
}

// New creates a viewer. The screen must already be initialized.
func New(screen tcell.Screen, sess *session.Session, opts Options) *Viewer {
	if opts.Marker == "" {
		opts.Marker = syllable.DisplaySeparator
	}
	theme := DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Null()
	}
	return &Viewer{
		screen:   screen,
		sess:     sess,
		opts:     opts,
		theme:    theme,
		gutter:   gutter.New(opts.Gutter),
		logger:   logger.WithComponent("tui"),
		strategy: opts.Strategy,
		heat:     opts.Heat,
		pageRows: 1,
	}
}

// Run draws the session and handles input until the user quits or ctx is
// cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	sub := v.sess.Store().Subscribe(func(store.Change) {
		v.Refresh()
	})
	defer sub.Unsubscribe()

	stop := context.AfterFunc(ctx, func() {
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(quitEvent{}))
	})
	defer stop()

	v.Draw()
	for {
		switch ev := v.screen.PollEvent().(type) {
		case nil:
			// Screen finalized.
			return nil
		case *tcell.EventResize:
			v.screen.Sync()
			v.Draw()
		case *tcell.EventKey:
			if !v.HandleKey(ev) {
				return nil
			}
			v.Draw()
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(quitEvent); ok {
				return ctx.Err()
			}
			v.Draw()
		}
	}
}

// Refresh schedules a redraw. It is safe to call from any goroutine and
// coalesces bursts.
func (v *Viewer) Refresh() {
	if v.redraw.Swap(true) {
		return
	}
	if err := v.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
		v.redraw.Store(false)
	}
}

// SetMessage shows msg in the status line until the next key press.
func (v *Viewer) SetMessage(msg string) {
	v.mu.Lock()
	v.message = msg
	v.mu.Unlock()
	v.Refresh()
}

// Cursor returns the highlighted line.
func (v *Viewer) Cursor() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// Strategy returns the current decoration strategy.
func (v *Viewer) Strategy() gutter.Strategy {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.strategy
}

// HandleKey applies a key press. It returns false when the viewer should
// quit.
func (v *Viewer) HandleKey(ev *tcell.EventKey) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.message = ""
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.cursor--
	case tcell.KeyDown:
		v.cursor++
	case tcell.KeyPgUp:
		v.cursor -= v.pageRows
	case tcell.KeyPgDn:
		v.cursor += v.pageRows
	case tcell.KeyHome:
		v.cursor = 0
	case tcell.KeyEnd:
		v.cursor = v.sess.LineCount() - 1
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'k':
			v.cursor--
		case 'j':
			v.cursor++
		case 'g':
			v.cursor = 0
		case 'G':
			v.cursor = v.sess.LineCount() - 1
		case 's':
			v.strategy = (v.strategy + 1) % 3
			v.message = "breaks: " + v.strategy.String()
		case 'h':
			v.heat = !v.heat
		case 'e':
			v.showErrors = !v.showErrors
		case 'c':
			v.sess.Errors().Clear()
			v.message = "errors cleared"
		case 'r':
			if err := v.sess.Load(v.sess.Lines()); err != nil {
				v.message = err.Error()
			} else {
				v.message = "reanalyzing"
			}
		}
	}
	return true
}

// Draw renders the whole screen.
func (v *Viewer) Draw() {
	v.redraw.Store(false)

	v.mu.Lock()
	defer v.mu.Unlock()

	lines := v.sess.Lines()
	snap := v.sess.Store().Snapshot()
	width, height := v.screen.Size()

	var errs []string
	panelRows := 0
	if v.showErrors {
		errs = v.sess.Errors().List()
		panelRows = 1 + min(len(errs), maxPanelRows)
	}
	textRows := max(height-1-panelRows, 0)
	v.pageRows = max(textRows, 1)
	v.clamp(len(lines), textRows)

	v.screen.Clear()
	v.gutter.SetCurrentLine(v.cursor)
	v.gutter.Measure(snap, len(lines))

	most := 0
	for row := 0; row < textRows && v.top+row < len(lines); row++ {
		if r, ok := snap.Get(v.top + row); ok {
			most = max(most, r.TotalSyllables)
		}
	}

	for row := 0; row < textRows; row++ {
		v.drawLine(row, v.top+row, lines, snap, width, most)
	}
	if v.showErrors {
		v.drawErrors(textRows, width, errs)
	}
	v.drawStatus(height-1, width, lines, snap)
	v.screen.Show()
}

// clamp keeps the cursor inside the document and on screen.
func (v *Viewer) clamp(lineCount, textRows int) {
	v.cursor = min(v.cursor, lineCount-1)
	v.cursor = max(v.cursor, 0)
	if v.cursor < v.top {
		v.top = v.cursor
	}
	if textRows > 0 && v.cursor >= v.top+textRows {
		v.top = v.cursor - textRows + 1
	}
	v.top = max(min(v.top, lineCount-textRows), 0)
}

func (v *Viewer) drawLine(row, n int, lines []string, snap store.Snapshot, width, most int) {
	exists := n < len(lines)
	text := ""
	class := lyric.Blank
	var r *syllable.LineResult
	if exists {
		text = lines[n]
		class = lyric.Classify(text)
		if res, ok := snap.Get(n); ok && class.Sung() {
			r = &res
		}
	}

	x := 0
	for _, c := range v.gutter.RenderLine(n, exists, r) {
		style := v.theme.gutterStyle(c.Style)
		if v.heat && c.Style == gutter.StyleCount && r != nil {
			style = style.Foreground(v.theme.Heat(r.TotalSyllables, most))
		}
		if x < width {
			v.screen.SetContent(x, row, c.Rune, nil, style)
		}
		x++
	}
	if !exists {
		return
	}

	base := v.theme.classStyle(class)
	pieces := []gutter.Piece{{Text: text}}
	if r != nil {
		pieces = gutter.Decorate(text, *r, v.strategy, v.opts.Marker)
	}
	for _, p := range pieces {
		style := base
		if p.Marker {
			style = v.theme.Marker
		}
		x = v.drawString(x, row, width, p.Text, style)
	}
}

func (v *Viewer) drawErrors(row, width int, errs []string) {
	header := fmt.Sprintf("─ errors (%d) ", len(errs))
	x := v.drawString(0, row, width, header, v.theme.Panel)
	for ; x < width; x++ {
		v.screen.SetContent(x, row, '─', nil, v.theme.Panel)
	}
	// Show the most recent entries.
	if len(errs) > maxPanelRows {
		errs = errs[len(errs)-maxPanelRows:]
	}
	for i, e := range errs {
		v.drawString(1, row+1+i, width, e, v.theme.Panel)
	}
}

func (v *Viewer) drawStatus(row, width int, lines []string, snap store.Snapshot) {
	if row < 0 {
		return
	}
	for x := 0; x < width; x++ {
		v.screen.SetContent(x, row, ' ', nil, v.theme.Status)
	}

	st := snap.Stats()
	parts := []string{}
	if v.opts.Title != "" {
		parts = append(parts, v.opts.Title)
	}
	if h, ok := currentSection(lines, v.cursor); ok {
		parts = append(parts, sectionLabel(h))
	}
	parts = append(parts,
		fmt.Sprintf("%d lines", len(lines)),
		fmt.Sprintf("%d syllables", st.Syllables),
		fmt.Sprintf("avg %.1f", st.AveragePerLine),
	)
	if v.opts.Health != nil && v.opts.Health().UsingFallback {
		parts = append(parts, "fallback")
	}
	if n := v.sess.Errors().Len(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", n))
	}
	if v.message != "" {
		parts = append(parts, v.message)
	}
	v.drawString(1, row, width, strings.Join(parts, " │ "), v.theme.Status)
}

// drawString draws s from column x, clipped at width, and returns the next
// column. Tabs occupy one cell.
func (v *Viewer) drawString(x, row, width int, s string, style tcell.Style) int {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		runes := g.Runes()
		w := g.Width()
		if runes[0] == '\t' {
			runes, w = []rune{' '}, 1
		}
		if w == 0 {
			continue
		}
		if x+w > width {
			break
		}
		v.screen.SetContent(x, row, runes[0], runes[1:], style)
		x += w
	}
	return x
}

// currentSection finds the nearest section header at or above line.
func currentSection(lines []string, line int) (lyric.Header, bool) {
	for i := min(line, len(lines)-1); i >= 0; i-- {
		if h, ok := lyric.ParseSection(lines[i]); ok {
			return h, true
		}
	}
	return lyric.Header{}, false
}

func sectionLabel(h lyric.Header) string {
	name := strings.ToUpper(h.Name[:1]) + h.Name[1:]
	if h.Number > 0 {
		return fmt.Sprintf("%s %d", name, h.Number)
	}
	return name
}
