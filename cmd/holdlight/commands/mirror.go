package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaz8081/holdlight/internal/frames"
)

func newMirrorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror FRAMES",
		Short: "Print the mirrored frame string of a climb",
		Long: `Print the mirrored frame string of a climb using the mirror ids of the
configured layout. Fails when any hold has no mirror counterpart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			details, err := loadBoard(ctx, cfg, store)
			if err != nil {
				return err
			}
			mirrored, err := frames.Mirror(firstFrame(args[0]), details.Holds)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mirrored)
			return nil
		},
	}
}
