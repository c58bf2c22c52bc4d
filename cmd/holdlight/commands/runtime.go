package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/chaz8081/holdlight/internal/ble"
	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/config"
	"github.com/chaz8081/holdlight/internal/notify"
	"github.com/chaz8081/holdlight/internal/placement"
)

// placementStore is implemented by both the file and Redis stores.
type placementStore interface {
	placement.Fetcher
	placement.HoldSource
}

// loadConfig reads and validates the config and installs the slog handler.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	var cfg *config.Config
	var err error
	if o.configPath == "" {
		cfg, err = config.LoadOrDefault(path)
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	setupLogging(os.Stderr, cfg.LogLevel)
	return cfg, nil
}

func setupLogging(w io.Writer, level string) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.ParseLogLevel(level)})
	slog.SetDefault(slog.New(handler))
}

// openStore opens the configured placement source. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg *config.Config) (placementStore, func(), error) {
	switch cfg.Placement.Source {
	case "redis":
		store, err := placement.NewRedisStore(&redis.Options{
			Addr: cfg.Placement.RedisAddr,
			DB:   cfg.Placement.RedisDB,
		}, cfg.Placement.KeyPrefix)
		if err != nil {
			return nil, func() {}, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, func() {}, err
		}
		return store, func() { store.Close() }, nil
	default:
		store, err := placement.LoadFile(cfg.Placement.File)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {}, nil
	}
}

// loadBoard builds the board details, including the layout's mirror ids
// when the store has them.
func loadBoard(ctx context.Context, cfg *config.Config, store placement.HoldSource) (board.Details, error) {
	details, err := cfg.BoardDetails()
	if err != nil {
		return board.Details{}, err
	}
	holds, err := store.Holds(ctx, details.Family, details.LayoutID)
	switch {
	case errors.Is(err, placement.ErrNotFound):
		slog.Warn("[placement] no hold list for layout, mirroring unavailable", "layout", details.String())
	case err != nil:
		return board.Details{}, err
	default:
		details.Holds = holds
	}
	return details, nil
}

func newAdapter(cfg *config.Config) ble.Adapter {
	if cfg.BLE.Backend == "hci" {
		return ble.NewHCIAdapter()
	}
	return ble.NewTinyGoAdapter()
}

func newManager(cfg *config.Config, details board.Details, store placement.Fetcher, out io.Writer) *ble.Manager {
	return ble.NewManager(newAdapter(cfg), details, store, ble.Options{
		Notifier:  notify.NewTerminalNotifier(nil),
		Telemetry: notify.NewSlogTelemetry(nil),
		Selector: ble.MatchSelector{
			Address:    cfg.BLE.DeviceAddress,
			NamePrefix: cfg.BLE.DeviceName,
		},
		OnConnectionChange: func(connected bool) {
			if connected {
				printSuccess(out, "connected to %s", details)
			} else {
				printWarning(out, "board disconnected")
			}
		},
		ChunkSize:    cfg.BLE.ChunkSize,
		ScanTimeout:  cfg.BLE.ScanTimeout,
		WriteTimeout: cfg.BLE.WriteTimeout,
	})
}

// connect opens a board session or returns a descriptive error.
func connect(ctx context.Context, m *ble.Manager) error {
	if !m.Connect(ctx, "", false) {
		return errors.New("could not connect to the board (see log for details)")
	}
	return nil
}
