package notify

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTerminalNotifierWritesMessage(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	NewTerminalNotifier(&buf).Error("Bluetooth is not available")

	if got := buf.String(); got != "✗ Bluetooth is not available\n" {
		t.Errorf("output = %q", got)
	}
}

func TestSlogTelemetryOrdersProps(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewSlogTelemetry(logger).Track(EventConnectionSuccess, map[string]string{
		"session":     "abc",
		"boardLayout": "Kilter Board Original",
	})

	out := buf.String()
	if !strings.Contains(out, `event="Bluetooth Connection Success"`) {
		t.Errorf("output missing event: %s", out)
	}
	if strings.Index(out, "boardLayout=") > strings.Index(out, "session=") {
		t.Errorf("props not sorted: %s", out)
	}
}
