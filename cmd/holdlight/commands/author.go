package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaz8081/holdlight/internal/authoring"
	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/config"
)

type authorOptions struct {
	offline  bool
	mirrored bool
	load     string
}

func newAuthorCmd(opts *rootOptions) *cobra.Command {
	ao := &authorOptions{}
	cmd := &cobra.Command{
		Use:   "author [HOLD_ID...]",
		Short: "Build a climb hold by hold, lighting the board as you go",
		Long: `Build a climb by clicking holds. Each click moves a hold to its next role
(start, hand, foot, finish, off; MoonBoard has no feet). At most two start
and two finish holds are allowed; a click that would exceed that skips the role.

With hold ids as arguments each id is clicked once in order. Without
arguments, hold ids are read from stdin one per line; "c" clears and "q"
finishes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			clicks := make([]int, 0, len(args))
			for _, a := range args {
				id, err := strconv.Atoi(a)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid hold id %q", a)
				}
				clicks = append(clicks, id)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runAuthor(cmd, cfg, ao, clicks)
		},
	}
	cmd.Flags().BoolVar(&ao.offline, "offline", false, "edit without connecting to the board")
	cmd.Flags().BoolVarP(&ao.mirrored, "mirrored", "m", false, "light the mirrored climb")
	cmd.Flags().StringVar(&ao.load, "load", "", "start from an existing frame string")
	return cmd
}

func runAuthor(cmd *cobra.Command, cfg *config.Config, ao *authorOptions, clicks []int) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil && !ao.offline {
		return err
	}
	defer closeStore()

	var details board.Details
	if store != nil {
		details, err = loadBoard(ctx, cfg, store)
	} else {
		slog.Warn("[authoring] placement source unavailable, editing without mirror ids", "error", err)
		details, err = cfg.BoardDetails()
	}
	if err != nil {
		return err
	}

	var editor *authoring.Editor
	if ao.offline {
		editor = authoring.NewEditor(details, nil)
	} else {
		m := newManager(cfg, details, store, out)
		if err := connect(ctx, m); err != nil {
			return err
		}
		defer m.Disconnect()
		editor = authoring.NewEditor(details, m)
	}
	editor.SetMirrored(ao.mirrored)

	if ao.load != "" {
		if err := editor.Load(ctx, ao.load); err != nil {
			return err
		}
	}

	if len(clicks) > 0 {
		for _, id := range clicks {
			printHold(out, id, editor.Toggle(ctx, id))
		}
	} else if err := authorInteractive(ctx, cmd.InOrStdin(), out, editor); err != nil {
		return err
	}

	printSummary(out, editor, details.Family)
	return nil
}

func authorInteractive(ctx context.Context, in io.Reader, out io.Writer, editor *authoring.Editor) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "q", "quit":
			return nil
		case "c", "clear":
			editor.Clear(ctx)
			fmt.Fprintln(out, "cleared")
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil || id <= 0 {
			printWarning(out, "not a hold id: %q", line)
			continue
		}
		printHold(out, id, editor.Toggle(ctx, id))
		fmt.Fprintf(out, "  %s\n", editor.Frames())
	}
	return scanner.Err()
}

func printSummary(out io.Writer, editor *authoring.Editor, family board.Family) {
	m := editor.Holds()
	frame := editor.Frames()
	if frame == "" {
		frame = "(empty)"
	}
	bold.Fprintf(out, "frames: %s\n", frame)
	counts := fmt.Sprintf("start %d  hand %d  finish %d", m.StartingCount(), m.HandCount(), m.FinishCount())
	if family.HasFootHolds() {
		counts += fmt.Sprintf("  foot %d", m.FootCount())
	}
	fmt.Fprintln(out, counts)
	if editor.IsValid() {
		printSuccess(out, "climb is valid")
	} else {
		printWarning(out, "climb is not valid yet")
	}
}
