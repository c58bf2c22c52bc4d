package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chaz8081/holdlight/internal/ble"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List board controllers in range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			adapter := newAdapter(cfg)
			if err := adapter.Enable(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanning for %s...\n", cfg.BLE.ScanTimeout)
			devices, err := ble.ScanForBoards(cmd.Context(), adapter, cfg.BLE.ScanTimeout)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				printWarning(out, "no boards found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tADDRESS\tRSSI")
			for _, d := range devices {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", d.Name, d.Address, d.RSSI)
			}
			return tw.Flush()
		},
	}
}
