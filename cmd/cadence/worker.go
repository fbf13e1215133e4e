package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/cadence/internal/channel"
	"github.com/dshills/cadence/internal/config"
)

func (c *cli) workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Serve analysis requests on stdin/stdout",
		Long:   `Run the analysis side of the process channel. Requests are read from standard input and responses written to standard output, one framed JSON message each.`,
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(cmd, func(cfg *config.Config) {
				// A worker never starts a channel of its own.
				cfg.Coordinator.Channel = config.ChannelNone
				cfg.Metrics.Addr = ""
			})
			if err != nil {
				return err
			}
			defer a.Close()

			a.Logger().WithComponent("worker").Debug("serving requests")
			return channel.Serve(cmd.Context(), c.stdin, c.stdout, channel.AnalyzerHandler(a.Analyzer()))
		},
	}
}
