package cmd

import (
	"github.com/grovetools/slotsync/cli"
	"github.com/grovetools/slotsync/pkg/profiling"
	"github.com/grovetools/slotsync/pkg/slotstore"
	"github.com/spf13/cobra"
)

// NewFetchCmd performs one bulk fetch and prints the grouped view.
func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch all time slots once",
		Long: `Fetch all time slots from the configured API and print them grouped by date.

Examples:
  slotsync fetch
  slotsync fetch --json
  slotsync fetch -c ./slotsync.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd)
			cfg, path, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger.WithField("config", path).Debug("Configuration resolved")

			svc, loc, err := newService(cfg)
			if err != nil {
				return err
			}

			span := profiling.Start("fetch")
			slots, err := svc.FetchTimeSlots(cmd.Context())
			span.Stop()
			if err != nil {
				return err
			}

			defer profiling.Start("render").Stop()
			store := slotstore.New()
			store.LoadAll(slots)

			if cli.GetOptions(cmd).JSONOutput {
				return writeJSON(cmd.OutOrStdout(), store.GroupedByDate())
			}
			renderGrouped(cmd.OutOrStdout(), store.GroupedByDate(), loc)
			return nil
		},
	}
}
