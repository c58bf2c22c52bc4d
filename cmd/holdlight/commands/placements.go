package commands

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/chaz8081/holdlight/internal/placement"
)

func newPlacementsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "placements",
		Short: "Manage LED placement data",
	}
	cmd.AddCommand(newPlacementsImportCmd(opts), newPlacementsShowCmd(opts))
	return cmd
}

func newPlacementsImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a layouts file into Redis",
		Long: `Load every layout of a YAML layouts file into Redis, replacing the hold
and placement hashes stored for those layouts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			file, err := placement.LoadFile(args[0])
			if err != nil {
				return err
			}

			store, err := placement.NewRedisStore(&redis.Options{
				Addr: cfg.Placement.RedisAddr,
				DB:   cfg.Placement.RedisDB,
			}, cfg.Placement.KeyPrefix)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			for _, layout := range file.Layouts() {
				if err := store.Import(ctx, layout); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "imported %s layout %d (%d holds, %d sizes)",
					layout.Family, layout.LayoutID, len(layout.Holds), len(layout.Sizes))
			}
			return nil
		},
	}
}

func newPlacementsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Summarize the placements of the configured board",
		Args:  cobra.NoArgs,
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
			placements, err := placement.NewCache().Get(ctx, placement.KeyFor(details), store)
			if errors.Is(err, placement.ErrNotFound) {
				return fmt.Errorf("no placements for %s (layout %d, size %d)", details, details.LayoutID, details.SizeID)
			}
			if err != nil {
				return err
			}

			mirrors := 0
			for _, h := range details.Holds {
				if h.MirroredHoldID != 0 {
					mirrors++
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "board:      %s (%s, protocol v%d)\n", details, details.Family, details.LEDProtocol())
			fmt.Fprintf(out, "placements: %d\n", len(placements))
			fmt.Fprintf(out, "holds:      %d (%d mirrored)\n", len(details.Holds), mirrors)
			return nil
		},
	}
}
