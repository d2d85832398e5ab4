package cli

import (
	"github.com/grovetools/slotsync/config"
	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the standard flags shared by every command.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command with the standard slotsync flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to slotsync.yml config file")

	SetStyledHelp(cmd)

	return cmd
}

// GetLogger returns the CLI logger. --verbose lowers the level of every
// slotsync logger to debug.
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logging.SetLevel(logrus.DebugLevel)
	}
	return logging.NewLogger("cli")
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// LoadConfig resolves the configuration for cmd. Without --config and
// without a file on the search path the defaults are used and path is "".
func LoadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	return config.Resolve(GetOptions(cmd).ConfigFile)
}

// Execute runs root and prints any error through ErrorHandler. It returns
// the process exit code.
func Execute(root *cobra.Command) int {
	ApplyStyledHelpRecursive(root)

	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	if cmd == nil {
		cmd = root
	}
	if errors.GetCode(err) == "" {
		PrintError(cmd, err)
	} else {
		handler := NewErrorHandler(GetOptions(cmd).Verbose)
		handler.Writer = cmd.ErrOrStderr()
		handler.Handle(err)
	}
	return 1
}
