package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/cadence/internal/config"
	"github.com/dshills/cadence/internal/gutter"
	"github.com/dshills/cadence/internal/logging"
	"github.com/dshills/cadence/internal/session"
	"github.com/dshills/cadence/internal/tui"
	"github.com/dshills/cadence/internal/watch"
)

func (c *cli) watchCmd() *cobra.Command {
	var (
		logFile  string
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Show a lyric file with live syllable counts",
		Long: `Open a lyric file in a terminal viewer. The file is reanalyzed whenever
it changes on disk, so it can be edited in another editor alongside.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0], logFile, strategy)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the viewer runs")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "initial break display: none, inline or replace")
	return cmd
}

func (c *cli) runWatch(cmd *cobra.Command, path, logFile, strategy string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	a, err := c.newApp(cmd, func(cfg *config.Config) {
		if strategy != "" {
			cfg.Display.Strategy = strategy
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	// The screen owns the terminal; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := a.Logger()
	logger.SetOutput(logOut)
	defer logger.SetOutput(c.stderr)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, coord, err := a.NewSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Load(session.SplitLines(string(data))); err != nil {
		return err
	}

	w, err := watch.New(path, watch.WithLogger(logger))
	if err != nil {
		return err
	}
	defer w.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()

	cfg := a.Config()
	viewer := tui.New(screen, sess, tui.Options{
		Title:    filepath.Base(path),
		Strategy: cfg.Strategy(),
		Marker:   cfg.Display.Separator,
		Heat:     cfg.Display.Heat,
		Gutter:   gutter.DefaultConfig(),
		Health:   coord.Health,
		Logger:   logger,
	})

	go reloadLoop(ctx, w, sess, viewer, logger)

	return viewer.Run(ctx)
}

// reloadLoop feeds file changes into the session until ctx is done.
func reloadLoop(ctx context.Context, w *watch.Watcher, sess *session.Session, v *tui.Viewer, logger *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			logger.Debug("%s: %s", ev.Path, ev.Op)
			data, err := os.ReadFile(ev.Path)
			if err != nil {
				// Removed without replacement; keep the last contents.
				v.SetMessage("file unavailable: " + err.Error())
				continue
			}
			if err := sess.SetText(string(data)); err != nil {
				v.SetMessage(err.Error())
				continue
			}
			v.SetMessage("reloaded")
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			sess.Errors().Add("watch: " + err.Error())
			v.Refresh()
		}
	}
}
