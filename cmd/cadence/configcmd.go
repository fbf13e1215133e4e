package main

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/cadence/internal/config"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(c.stdout, "# loaded from %s\n", path)
			}
			enc := toml.NewEncoder(c.stdout)
			enc.SetIndentTables(true)
			return enc.Encode(cfg)
		},
	}

	env := &cobra.Command{
		Use:   "env",
		Short: "List the recognised environment variables",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintln(c.stdout, strings.Join(config.EnvVars(), "\n"))
			return err
		},
	}

	cmd.AddCommand(show, env)
	return cmd
}
