// Package notify provides the user-facing notification sink and the
// fire-and-forget telemetry sink used by the board connection manager.
package notify

import (
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/fatih/color"
)

// Notifier shows a single transient message to the user.
type Notifier interface {
	Error(msg string)
}

// Telemetry records product events. Implementations must not block.
type Telemetry interface {
	Track(event string, props map[string]string)
}

// Event names emitted by the connection manager.
const (
	EventConnectionSuccess = "Bluetooth Connection Success"
	EventConnectionFailed  = "Bluetooth Connection Failed"
)

var red = color.New(color.FgRed, color.Bold)

// TerminalNotifier prints notifications in red to a writer (stderr by
// default). Colour follows fatih/color's NO_COLOR and TTY detection.
type TerminalNotifier struct {
	w io.Writer
}

// NewTerminalNotifier writes to w, or os.Stderr when w is nil.
func NewTerminalNotifier(w io.Writer) *TerminalNotifier {
	if w == nil {
		w = os.Stderr
	}
	return &TerminalNotifier{w: w}
}

func (n *TerminalNotifier) Error(msg string) {
	red.Fprintf(n.w, "✗ %s\n", msg)
}

// SlogTelemetry writes events as structured log records at info level.
type SlogTelemetry struct {
	logger *slog.Logger
}

// NewSlogTelemetry logs through logger, or slog.Default() when nil.
func NewSlogTelemetry(logger *slog.Logger) *SlogTelemetry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogTelemetry{logger: logger}
}

func (t *SlogTelemetry) Track(event string, props map[string]string) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, 2+2*len(keys))
	args = append(args, "event", event)
	for _, k := range keys {
		args = append(args, k, props[k])
	}
	t.logger.Info("[telemetry]", args...)
}

// Discard drops every notification and event.
type Discard struct{}

func (Discard) Error(string)                      {}
func (Discard) Track(string, map[string]string) {}

var (
	_ Notifier  = (*TerminalNotifier)(nil)
	_ Telemetry = (*SlogTelemetry)(nil)
	_ Notifier  = Discard{}
	_ Telemetry = Discard{}
)
