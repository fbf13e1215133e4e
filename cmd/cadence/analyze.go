package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/dshills/cadence/internal/config"
	"github.com/dshills/cadence/internal/coordinator"
	"github.com/dshills/cadence/internal/gutter"
	"github.com/dshills/cadence/internal/lyric"
	"github.com/dshills/cadence/internal/session"
	"github.com/dshills/cadence/internal/store"
	"github.com/dshills/cadence/internal/syllable"
)

// maxAttempts bounds retries of a line whose request was lost to a channel
// failure or timeout.
const maxAttempts = 2

// ANSI colours for text output.
const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiMagenta = "\x1b[1;35m"
	ansiCyan    = "\x1b[36m"
)

type analyzeOptions struct {
	json     bool
	pretty   bool
	strategy string
	color    string
	jobs     int
}

func (c *cli) analyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Count syllables in a lyric file",
		Long: `Analyze every line of a lyric file (or standard input) and print the
syllable count of each line with its breaks marked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.json, "json", false, "print results as JSON")
	f.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	f.StringVarP(&opts.strategy, "strategy", "s", "", "break display: none, inline or replace")
	f.StringVar(&opts.color, "color", "auto", "colour output: auto, always or never")
	f.IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "lines analyzed concurrently")
	return cmd
}

func (c *cli) runAnalyze(cmd *cobra.Command, args []string, opts analyzeOptions) error {
	name, text, err := c.readInput(args)
	if err != nil {
		return err
	}
	colour, err := c.useColour(opts.color)
	if err != nil {
		return err
	}

	a, err := c.newApp(cmd, func(cfg *config.Config) {
		if opts.strategy != "" {
			cfg.Display.Strategy = opts.strategy
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	coord, err := a.NewCoordinator(ctx)
	if err != nil {
		return err
	}
	defer coord.Shutdown()

	lines := session.SplitLines(text)
	results, err := analyzeLines(ctx, coord, lines, opts.jobs)
	if err != nil {
		return err
	}

	rep := report{
		source:  name,
		cfg:     a.Config(),
		lines:   lines,
		results: results,
	}
	if opts.json {
		return rep.writeJSON(c.stdout, opts.pretty, colour)
	}
	return rep.writeText(c.stdout, colour)
}

// readInput reads the named file, or standard input for "-" or no
// argument.
func (c *cli) readInput(args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "-", string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return args[0], string(data), nil
}

// useColour decides whether to emit ANSI colour. "auto" colours only a
// terminal.
func (c *cli) useColour(mode string) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := c.stdout.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid --color %q: want auto, always or never", mode)
	}
}

// lineProcessor analyzes one line and waits for the result.
type lineProcessor interface {
	Process(ctx context.Context, lineNumber int, text string) (syllable.LineResult, error)
}

// analyzeLines analyzes the sung lines concurrently. Other lines get an
// empty result.
func analyzeLines(ctx context.Context, p lineProcessor, lines []string, jobs int) ([]syllable.LineResult, error) {
	results := make([]syllable.LineResult, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))

	for i, text := range lines {
		if !lyric.Classify(text).Sung() {
			results[i] = syllable.Empty(i)
			continue
		}
		g.Go(func() error {
			r, err := processLine(gctx, p, i, text)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processLine retries requests lost to the channel; the coordinator
// restarts the channel or falls back before the retry.
func processLine(ctx context.Context, p lineProcessor, line int, text string) (syllable.LineResult, error) {
	var err error
	for range maxAttempts {
		var r syllable.LineResult
		r, err = p.Process(ctx, line, text)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, coordinator.ErrChannelFailed) && !errors.Is(err, coordinator.ErrTimeout) {
			return syllable.LineResult{}, err
		}
	}
	return syllable.LineResult{}, err
}

// report formats analysis results.
type report struct {
	source  string
	cfg     config.Config
	lines   []string
	results []syllable.LineResult
}

func (r report) stats() store.Stats {
	s := store.New()
	for _, res := range r.results {
		s.Apply(res)
	}
	return s.Stats()
}

func (r report) writeText(w io.Writer, colour bool) error {
	paint := func(code, s string) string {
		if !colour || s == "" {
			return s
		}
		return code + s + ansiReset
	}

	numWidth := len(fmt.Sprint(len(r.lines)))
	countWidth := 2
	for _, res := range r.results {
		countWidth = max(countWidth, len(fmt.Sprint(res.TotalSyllables))+1)
	}

	strategy := r.cfg.Strategy()
	marker := r.cfg.Display.Separator

	var b strings.Builder
	for i, text := range r.lines {
		res := r.results[i]
		class := lyric.Classify(text)

		count, style := gutter.FormatCount(res, '!')
		code := ansiGreen
		if style == gutter.StyleError {
			code = ansiRed
		}
		b.WriteString(paint(ansiDim, gutter.PadLeft(fmt.Sprint(i+1), numWidth)))
		b.WriteString(" ")
		b.WriteString(paint(code, gutter.PadLeft(count, countWidth)))
		b.WriteString("  ")

		switch class {
		case lyric.Lyric:
			for _, p := range gutter.Decorate(text, res, strategy, marker) {
				if p.Marker {
					b.WriteString(paint(ansiCyan, p.Text))
				} else {
					b.WriteString(p.Text)
				}
			}
		case lyric.Section:
			b.WriteString(paint(ansiMagenta, text))
		case lyric.Blank:
		default:
			b.WriteString(paint(ansiDim, text))
		}
		b.WriteString("\n")

		for _, e := range res.Errors {
			fmt.Fprintf(&b, "%s%s\n", strings.Repeat(" ", numWidth+countWidth+3), paint(ansiRed, e))
		}
	}

	st := r.stats()
	fmt.Fprintf(&b, "\n%d sung lines, %d words, %d syllables, %.1f per line",
		st.SungLines, st.Words, st.Syllables, st.AveragePerLine)
	if st.ErrorLines > 0 {
		fmt.Fprintf(&b, ", %s", paint(ansiRed, fmt.Sprintf("%d lines with errors", st.ErrorLines)))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// jsonLine is one line of JSON output. Line is 1-based.
type jsonLine struct {
	Line    int                 `json:"line"`
	Text    string              `json:"text"`
	Class   string              `json:"class"`
	Display string              `json:"display,omitempty"`
	Result  syllable.LineResult `json:"result"`
}

type jsonStats struct {
	LinesWithData  int     `json:"linesWithData"`
	SungLines      int     `json:"sungLines"`
	Words          int     `json:"words"`
	Syllables      int     `json:"syllables"`
	ErrorLines     int     `json:"errorLines"`
	AveragePerLine float64 `json:"averagePerLine"`
}

func (r report) writeJSON(w io.Writer, indent, colour bool) error {
	strategy := r.cfg.Strategy()
	out := make([]jsonLine, len(r.lines))
	for i, text := range r.lines {
		class := lyric.Classify(text)
		out[i] = jsonLine{
			Line:   i + 1,
			Text:   text,
			Class:  class.String(),
			Result: r.results[i],
		}
		if class.Sung() && strategy != gutter.StrategyNone {
			out[i].Display = gutter.Render(text, r.results[i], strategy, r.cfg.Display.Separator)
		}
	}

	lines, err := json.Marshal(out)
	if err != nil {
		return err
	}
	st := r.stats()
	stats, err := json.Marshal(jsonStats{
		LinesWithData:  st.LinesWithData,
		SungLines:      st.SungLines,
		Words:          st.Words,
		Syllables:      st.Syllables,
		ErrorLines:     st.ErrorLines,
		AveragePerLine: st.AveragePerLine,
	})
	if err != nil {
		return err
	}

	doc := []byte(`{}`)
	for _, set := range []struct {
		path  string
		value any
		raw   []byte
	}{
		{path: "source", value: r.source},
		{path: "language", value: r.cfg.Analysis.Language},
		{path: "stats", raw: stats},
		{path: "lines", raw: lines},
	} {
		if set.raw != nil {
			doc, err = sjson.SetRawBytes(doc, set.path, set.raw)
		} else {
			doc, err = sjson.SetBytes(doc, set.path, set.value)
		}
		if err != nil {
			return fmt.Errorf("building report: %w", err)
		}
	}

	if indent {
		doc = pretty.Pretty(doc)
	} else {
		doc = append(pretty.Ugly(doc), '\n')
	}
	if colour {
		doc = pretty.Color(doc, nil)
	}
	_, err = w.Write(doc)
	return err
}
