package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/holdlight/internal/board"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Board     BoardConfig     `yaml:"board"`
	Placement PlacementConfig `yaml:"placement"`
	BLE       BLEConfig       `yaml:"ble"`
}

// BoardConfig identifies the board being driven.
type BoardConfig struct {
	Family     string `yaml:"family"` // "kilter", "tension" or "moonboard"
	LayoutID   int    `yaml:"layout_id"`
	SizeID     int    `yaml:"size_id"`
	LayoutName string `yaml:"layout_name"`
	Protocol   string `yaml:"protocol"` // "", "v2" or "v3"
}

// PlacementConfig selects where LED placements and mirror ids come from.
type PlacementConfig struct {
	Source    string `yaml:"source"` // "file" or "redis"
	File      string `yaml:"file"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// BLEConfig holds Bluetooth settings.
type BLEConfig struct {
	Backend       string        `yaml:"backend"`        // "tinygo" or "hci"
	DeviceName    string        `yaml:"device_name"`    // name prefix filter
	DeviceAddress string        `yaml:"device_address"` // exact address, wins over device_name
	ScanTimeout   time.Duration `yaml:"scan_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	ChunkSize     int           `yaml:"chunk_size"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "holdlight")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Board: BoardConfig{
			Family:     "kilter",
			LayoutID:   1,
			SizeID:     10,
			LayoutName: "Kilter Board Original",
		},
		Placement: PlacementConfig{
			Source:    "file",
			File:      filepath.Join(DefaultConfigDir(), "layouts.yaml"),
			RedisAddr: "localhost:6379",
			KeyPrefix: "holdlight",
		},
		BLE: BLEConfig{
			Backend:      "tinygo",
			ScanTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Second,
			ChunkSize:    20,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in placement.file is expanded to the user's
// home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Placement.File = expandTilde(cfg.Placement.File)

	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if _, err := board.ParseFamily(c.Board.Family); err != nil {
		return fmt.Errorf("board.family: %w", err)
	}
	if c.Board.LayoutID <= 0 {
		return fmt.Errorf("board.layout_id must be > 0")
	}
	if c.Board.SizeID <= 0 {
		return fmt.Errorf("board.size_id must be > 0")
	}
	if _, err := board.ParseProtocol(c.Board.Protocol); err != nil {
		return fmt.Errorf("board.protocol: %w", err)
	}

	switch c.Placement.Source {
	case "file":
		if c.Placement.File == "" {
			return fmt.Errorf("placement.file must not be empty when placement.source is \"file\"")
		}
	case "redis":
		if c.Placement.RedisAddr == "" {
			return fmt.Errorf("placement.redis_addr must not be empty when placement.source is \"redis\"")
		}
		if c.Placement.KeyPrefix == "" {
			return fmt.Errorf("placement.key_prefix must not be empty")
		}
	default:
		return fmt.Errorf("placement.source must be \"file\" or \"redis\", got %q", c.Placement.Source)
	}

	switch c.BLE.Backend {
	case "tinygo", "hci":
	default:
		return fmt.Errorf("ble.backend must be \"tinygo\" or \"hci\", got %q", c.BLE.Backend)
	}
	if c.BLE.ScanTimeout <= 0 {
		return fmt.Errorf("ble.scan_timeout must be > 0")
	}
	if c.BLE.WriteTimeout < 0 {
		return fmt.Errorf("ble.write_timeout must not be negative")
	}
	if c.BLE.ChunkSize <= 0 || c.BLE.ChunkSize > 512 {
		return fmt.Errorf("ble.chunk_size must be between 1 and 512, got %d", c.BLE.ChunkSize)
	}

	return nil
}

// BoardDetails converts the board section. Call Validate first.
func (c *Config) BoardDetails() (board.Details, error) {
	family, err := board.ParseFamily(c.Board.Family)
	if err != nil {
		return board.Details{}, err
	}
	proto, err := board.ParseProtocol(c.Board.Protocol)
	if err != nil {
		return board.Details{}, err
	}
	return board.Details{
		Family:     family,
		LayoutID:   c.Board.LayoutID,
		SizeID:     c.Board.SizeID,
		LayoutName: c.Board.LayoutName,
		Protocol:   proto,
	}, nil
}

// ParseLogLevel maps a config log level to slog. Unknown values are info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# holdlight configuration
# family: kilter | tension | moonboard
# placement.source: file | redis
# ble.backend: tinygo | hci (linux only, raw HCI socket)
`

// WriteDefault writes the default config to DefaultConfigPath. It returns
// the written path, or "" when a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
