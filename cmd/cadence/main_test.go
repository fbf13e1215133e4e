package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/cadence/internal/channel"
	"github.com/dshills/cadence/internal/coordinator"
	"github.com/dshills/cadence/internal/syllable"
)

const lyrics = "[Verse 1]\nBeautiful, day!\n\nhello world\n"

// execute runs the root command with an isolated environment and an
// explicit empty config file.
func execute(t *testing.T, stdin string, env []string, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "cadence.toml")
	if err := os.WriteFile(cfgPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	c := &cli{
		stdin:   strings.NewReader(stdin),
		stdout:  &stdout,
		stderr:  &stderr,
		environ: func() []string { return env },
	}
	root := c.rootCmd()
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestAnalyze_Text(t *testing.T) {
	for _, ch := range []string{"worker", "none"} {
		t.Run(ch, func(t *testing.T) {
			out, _, err := execute(t, lyrics, []string{"CADENCE_CHANNEL=" + ch}, "analyze", "--color", "never")
			if err != nil {
				t.Fatalf("analyze error = %v", err)
			}

			lines := strings.Split(out, "\n")
			want := []string{
				"1     [Verse 1]",
				"2  4  Beau·ti·ful, day!",
				"3",
				"4  3  hel·lo world",
			}
			for i, w := range want {
				if got := strings.TrimRight(lines[i], " "); got != w {
					t.Errorf("line %d = %q, want %q", i+1, got, w)
				}
			}
			if !strings.Contains(out, "2 sung lines, 4 words, 7 syllables, 3.5 per line") {
				t.Errorf("summary missing from %q", out)
			}
		})
	}
}

func TestAnalyze_Strategy(t *testing.T) {
	out, _, err := execute(t, "Beautiful, day!", nil, "analyze", "--color", "never", "--strategy", "replace")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Beau·ti·ful day!") {
		t.Errorf("output %q missing replaced word", out)
	}

	_, _, err = execute(t, "la", nil, "analyze", "--strategy", "sideways")
	if err == nil {
		t.Error("invalid strategy accepted")
	}
}

func TestAnalyze_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.txt")
	if err := os.WriteFile(path, []byte("wonder\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute(t, "", nil, "analyze", "--color", "never", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "1  2  won·der") {
		t.Errorf("output = %q", out)
	}

	if _, _, err := execute(t, "", nil, "analyze", filepath.Join(t.TempDir(), "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}

func TestAnalyze_JSON(t *testing.T) {
	out, _, err := execute(t, lyrics, nil, "analyze", "--json", "--color", "never")
	if err != nil {
		t.Fatal(err)
	}
	if !gjson.Valid(out) {
		t.Fatalf("invalid JSON: %s", out)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Error("compact output spans several lines")
	}

	tests := []struct {
		path string
		want string
	}{
		{"source", "-"},
		{"language", "en"},
		{"stats.syllables", "7"},
		{"stats.sungLines", "2"},
		{"stats.linesWithData", "4"},
		{"lines.#", "4"},
		{"lines.0.class", "section"},
		{"lines.1.line", "2"},
		{"lines.1.display", "Beau·ti·ful, day!"},
		{"lines.1.result.totalSyllables", "4"},
		{"lines.1.result.words.0.breakPositions", "[4,6]"},
		{"lines.2.class", "blank"},
	}
	for _, tt := range tests {
		if got := gjson.Get(out, tt.path).String(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAnalyze_JSONPretty(t *testing.T) {
	out, _, err := execute(t, "hello", nil, "analyze", "--json", "--pretty", "--color", "never")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\n  \"source\": \"-\"") {
		t.Errorf("output not indented: %s", out)
	}
}

func TestAnalyze_BadColour(t *testing.T) {
	if _, _, err := execute(t, "la", nil, "analyze", "--color", "sometimes"); err == nil {
		t.Error("invalid --color accepted")
	}
}

func TestUnknownEnvWarns(t *testing.T) {
	_, stderr, err := execute(t, "la", []string{"CADENCE_COLOUR=1"}, "analyze", "--color", "never")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "unknown environment variable CADENCE_COLOUR") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestConfigShow(t *testing.T) {
	out, _, err := execute(t, "", []string{"CADENCE_LANGUAGE=de"}, "config", "show", "--log-level", "debug")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[analysis]", "de", "[logging]", "debug", "250ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}

	out, _, err = execute(t, "", nil, "config", "env")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "CADENCE_LANGUAGE\n") {
		t.Errorf("config env = %q", out)
	}
}

func TestWorker(t *testing.T) {
	var in bytes.Buffer
	conn := channel.NewConn(nil, &in)
	for i, text := range []string{"beautiful", "hello world"} {
		data, err := channel.EncodeRequest(channel.NewRequest(int64(i+1), i, text))
		if err != nil {
			t.Fatal(err)
		}
		if err := conn.WriteMessage(data); err != nil {
			t.Fatal(err)
		}
	}

	out, _, err := execute(t, in.String(), []string{"CADENCE_CHANNEL=process"}, "worker")
	if err != nil {
		t.Fatalf("worker error = %v", err)
	}

	reader := channel.NewConn(strings.NewReader(out), io.Discard)
	for i, want := range []int{3, 3} {
		data, err := reader.ReadMessage()
		if err != nil {
			t.Fatalf("response %d: %v", i, err)
		}
		resp, err := channel.DecodeResponse(data)
		if err != nil {
			t.Fatal(err)
		}
		if resp.ID != int64(i+1) || resp.Data == nil || resp.Data.TotalSyllables != want {
			t.Errorf("response %d = %+v, want %d syllables", i, resp, want)
		}
	}
}

// flakyProcessor fails the first request for each line.
type flakyProcessor struct {
	mu    sync.Mutex
	seen  map[int]int
	err   error
	calls int
}

func (p *flakyProcessor) Process(_ context.Context, line int, text string) (syllable.LineResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.seen[line]++
	if p.seen[line] == 1 && p.err != nil {
		return syllable.LineResult{}, p.err
	}
	return syllable.NewAnalyzer(nil).Analyze(line, text), nil
}

func TestAnalyzeLines(t *testing.T) {
	lines := []string{"[Chorus]", "hello", "", "# note", "world"}

	tests := []struct {
		name      string
		err       error
		wantErr   bool
		wantCalls int
	}{
		{"ok", nil, false, 2},
		{"channel failure retried", &coordinator.ChannelError{Op: "read", Err: io.ErrUnexpectedEOF}, false, 4},
		{"timeout retried", coordinator.ErrTimeout, false, 4},
		{"request error", &coordinator.RequestError{ID: 1, LineNumber: 1, Message: "boom"}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &flakyProcessor{seen: map[int]int{}, err: tt.err}
			results, err := analyzeLines(context.Background(), p, lines, 2)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "line ") {
					t.Errorf("error = %v, want line error", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", p.calls, tt.wantCalls)
			}
			counts := make([]int, len(results))
			for i, r := range results {
				counts[i] = r.TotalSyllables
			}
			want := []int{0, 2, 0, 0, 1}
			for i := range want {
				if counts[i] != want[i] {
					t.Errorf("counts = %v, want %v", counts, want)
					break
				}
			}
		})
	}
}
