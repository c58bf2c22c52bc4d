package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/holdlight/internal/ble/protocol"
	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/frames"
	"github.com/chaz8081/holdlight/internal/placement"
)

type sendOptions struct {
	mirrored bool
	dryRun   bool
	hold     time.Duration
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	so := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send FRAMES",
		Short: "Light a climb on the board",
		Long: `Light a climb given as a frame string, e.g. "p1080r42p1101r43p1150r44".

Only the first frame of a comma separated multi-frame string is lit.

Examples:
  # Light a climb and keep the session open until Ctrl+C
  holdlight send p1080r42p1101r43 --hold 0

  # Show the LED packet without touching Bluetooth
  holdlight send p1080r42 --dry-run --mirrored`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame := firstFrame(args[0])
			if frame == "" {
				return fmt.Errorf("no holds in %q; use \"holdlight clear\" to turn the board off", args[0])
			}

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
			out := cmd.OutOrStdout()

			if so.dryRun {
				return dryRun(ctx, out, details, store, frame, so.mirrored, cfg.BLE.ChunkSize)
			}

			m := newManager(cfg, details, store, out)
			if err := connect(ctx, m); err != nil {
				return err
			}
			defer m.Disconnect()

			if err := m.Send(ctx, frame, so.mirrored); err != nil {
				return err
			}
			printSuccess(out, "lit %s", frame)
			return waitHold(ctx, out, so.hold)
		},
	}
	cmd.Flags().BoolVarP(&so.mirrored, "mirrored", "m", false, "light the mirrored climb")
	cmd.Flags().BoolVar(&so.dryRun, "dry-run", false, "print the LED commands instead of sending them")
	cmd.Flags().DurationVar(&so.hold, "hold", 5*time.Second, "stay connected this long before disconnecting (0 waits for Ctrl+C)")
	return cmd
}

func firstFrame(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return first
}

// dryRun builds the packet exactly as a send would and prints it decoded.
func dryRun(ctx context.Context, out io.Writer, details board.Details, store placement.Fetcher, frame string, mirrored bool, chunkSize int) error {
	placements, err := placement.NewCache().Get(ctx, placement.KeyFor(details), store)
	if err != nil {
		return err
	}
	if mirrored {
		if frame, err = frames.Mirror(frame, details.Holds); err != nil {
			return err
		}
	}
	packet, err := protocol.BuildPacket(frame, placements, details.Family, details.LEDProtocol())
	if err != nil {
		return err
	}
	msgs, err := protocol.ParseMessages(packet)
	if err != nil {
		return err
	}

	chunks := protocol.SplitMessages(packet, chunkSize)
	bold.Fprintf(out, "%s  protocol v%d  %d bytes in %d chunks\n", frame, details.LEDProtocol(), len(packet), len(chunks))
	for i, msg := range msgs {
		fmt.Fprintf(out, "message %d  command %q  %d LEDs\n", i+1, msg.Command, len(msg.LEDs))
		for _, led := range msg.LEDs {
			fmt.Fprintf(out, "  led %4d  #%02X%02X%02X\n", led.Position, led.R, led.G, led.B)
		}
	}
	return nil
}

// waitHold keeps the session open for d, or until interrupted when d is 0.
func waitHold(ctx context.Context, out io.Writer, d time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d == 0 {
		fmt.Fprintln(out, "Connected. Ctrl+C to disconnect.")
		<-ctx.Done()
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return nil
}
