package cmd

import (
	"fmt"

	"github.com/grovetools/slotsync/cli"
	"github.com/grovetools/slotsync/config"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd groups the configuration helpers.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate slotsync.yml",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults are applied.
Without a config file the built-in defaults are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"source": path,
					"config": cfg,
				})
			}

			source := path
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# Source: %s\n", source)
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file against the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			if path == "" {
				pretty.WarnPretty("No config file found, defaults are valid")
				return nil
			}
			pretty.Success(fmt.Sprintf("%s is valid", path))
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	var reflected bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for slotsync.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := schema.Raw()
			if reflected {
				var err error
				if data, err = config.GenerateSchema(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reflected, "reflect", false, "Generate from the Go types instead of printing the embedded schema")
	return cmd
}
