package commands

import (
	"github.com/spf13/cobra"

	"github.com/chaz8081/holdlight/internal/config"
)

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault()
			if err != nil {
				return err
			}
			if path == "" {
				printWarning(cmd.OutOrStdout(), "config already exists at %s", config.DefaultConfigPath())
				return nil
			}
			printSuccess(cmd.OutOrStdout(), "wrote %s", path)
			return nil
		},
	}
}
