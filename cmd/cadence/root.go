package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/cadence/internal/app"
	"github.com/dshills/cadence/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	logLevel    string
	metricsAddr string
}

// cli carries the streams and global flags into the subcommands.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags

	// environ is os.Environ unless a test replaces it.
	environ func() []string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, environ: os.Environ}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cadence",
		Short: "Count and mark syllables in song lyrics",
		Long: `Cadence analyzes lyric sheets line by line: it splits each word into
syllables, counts them per line and shows the breaks inline.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.configPath, "config", "c", "", "path to configuration file (TOML, YAML or JSON)")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&c.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		c.analyzeCmd(),
		c.watchCmd(),
		c.workerCmd(),
		c.configCmd(),
	)
	return root
}

// loadConfig resolves the layered configuration: defaults, file,
// environment, then flags.
func (c *cli) loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path := c.flags.configPath
	if path == "" {
		path = config.Locate()
	}
	cfg, unknown, err := config.Resolve(path, c.environ())
	if err != nil {
		return cfg, path, err
	}
	for _, name := range unknown {
		fmt.Fprintf(c.stderr, "warning: unknown environment variable %s\n", name)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.flags.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = c.flags.metricsAddr
	}
	return cfg, path, nil
}

// newApp loads the configuration and builds the application. It starts the
// metrics endpoint when one is configured.
func (c *cli) newApp(cmd *cobra.Command, mutate func(*config.Config)) (*app.Application, error) {
	cfg, path, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := app.New(cfg, app.Options{ConfigPath: path, LogOutput: c.stderr})
	if err != nil {
		return nil, err
	}
	if _, err := a.ServeMetrics(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
