// Command test-send is a manual hardware test for the board connection.
// It connects to the strongest board in range, lights LEDs 0-3 with one
// hold of each role for five seconds, then clears the board.
//
// Usage:
//
//	go run ./cmd/test-send [--family kilter] [--backend tinygo|hci] [--name Kilter]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chaz8081/holdlight/internal/ble"
	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/frames"
	"github.com/chaz8081/holdlight/internal/holds"
	"github.com/chaz8081/holdlight/internal/notify"
	"github.com/chaz8081/holdlight/internal/placement"
)

func main() {
	familyName := flag.String("family", "kilter", "board family: kilter, tension or moonboard")
	backend := flag.String("backend", "tinygo", "bluetooth backend: tinygo or hci")
	name := flag.String("name", "", "board name prefix to connect to")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	family, err := board.ParseFamily(*familyName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Hold ids 1-4 map straight to LEDs 0, 1, 2, 3.
	fixed := placement.FetcherFunc(func(context.Context, placement.Key) (placement.Map, error) {
		return placement.Map{1: 0, 2: 1, 3: 2, 4: 3}, nil
	})

	var adapter ble.Adapter = ble.NewTinyGoAdapter()
	if *backend == "hci" {
		adapter = ble.NewHCIAdapter()
	}

	m := ble.NewManager(adapter, board.Details{Family: family, LayoutID: 1, SizeID: 1}, fixed, ble.Options{
		Notifier:  notify.NewTerminalNotifier(nil),
		Telemetry: notify.NewSlogTelemetry(nil),
		Selector:  ble.MatchSelector{NamePrefix: *name},
	})

	ctx := context.Background()
	fmt.Println("Connecting...")
	if !m.Connect(ctx, "", false) {
		fmt.Println("Connect failed")
		os.Exit(1)
	}
	defer m.Disconnect()

	var entries []holds.Entry
	for i, c := range []board.Classification{board.Starting, board.Hand, board.Finish, board.Foot} {
		if colors, ok := family.ColorsFor(c); ok {
			entries = append(entries, holds.Entry{HoldID: i + 1, Classification: c, Colors: colors})
		}
	}
	frame := frames.Encode(holds.NewMap(entries...), family)

	fmt.Printf("Lighting %s for 5 seconds...\n", frame)
	if err := m.Send(ctx, frame, false); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	time.Sleep(5 * time.Second)

	if err := m.Clear(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("\nDone!")
}
