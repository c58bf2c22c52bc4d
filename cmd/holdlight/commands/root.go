package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var versionString = "dev"

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "holdlight",
		Short: "Light climbs on Kilter, Tension and MoonBoard LED boards",
		Long: `holdlight drives the LED controller of an Aurora-based climbing board
(Kilter, Tension, MoonBoard) over Bluetooth Low Energy.

It encodes climbs as frame strings ("p<hold>r<state>..."), resolves hold ids
to LED positions from a layouts file or Redis, and writes the board's LED
packets in MTU-sized chunks.`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: ~/.config/holdlight/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level from the config file")

	root.AddCommand(
		newScanCmd(opts),
		newSendCmd(opts),
		newClearCmd(opts),
		newMirrorCmd(opts),
		newAuthorCmd(opts),
		newInitConfigCmd(),
		newPlacementsCmd(opts),
	)
	return root
}

// Execute runs the command line and prints any error in red.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
