package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/chaz8081/holdlight/internal/board"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	bold   = color.New(color.Bold)
)

func printError(w io.Writer, err error) {
	red.Fprintf(w, "Error: %v\n", err)
}

func printSuccess(w io.Writer, format string, args ...any) {
	green.Fprintf(w, "✓ "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	yellow.Fprintf(w, "! "+format+"\n", args...)
}

// classColor renders a classification in the terminal colour closest to its
// LED colour.
func classColor(c board.Classification) *color.Color {
	switch c {
	case board.Starting:
		return color.New(color.FgGreen, color.Bold)
	case board.Hand:
		return color.New(color.FgCyan)
	case board.Foot:
		return color.New(color.FgYellow)
	case board.Finish:
		return color.New(color.FgMagenta, color.Bold)
	default:
		return color.New(color.Faint)
	}
}

func printHold(w io.Writer, holdID int, c board.Classification) {
	fmt.Fprintf(w, "hold %5d  ", holdID)
	classColor(c).Fprintln(w, c.String())
}
