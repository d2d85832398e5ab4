// Package cmd holds the slotsync subcommands.
package cmd

import (
	"github.com/grovetools/slotsync/cli"
	"github.com/grovetools/slotsync/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the slotsync command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("slotsync", "Live time slot availability")
	root.Long = `slotsync loads bookable time slots from an HTTP API and keeps them
current through a push channel (SSE or WebSocket), reconnecting with
exponential backoff when the channel drops.`

	profiling.NewCobraProfiler().Attach(root)

	root.AddCommand(NewFetchCmd())
	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(cli.NewVersionCommand())
	return root
}
