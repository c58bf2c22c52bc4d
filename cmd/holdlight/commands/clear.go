package commands

import (
	"github.com/spf13/cobra"
)

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Turn every LED on the board off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			details, err := cfg.BoardDetails()
			if err != nil {
				return err
			}

			// Clearing needs no placements.
			m := newManager(cfg, details, nil, cmd.OutOrStdout())
			ctx := cmd.Context()
			if err := connect(ctx, m); err != nil {
				return err
			}
			defer m.Disconnect()

			if err := m.Clear(ctx); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "board cleared")
			return nil
		},
	}
}
