package main

import (
	"os"

	"github.com/chaz8081/holdlight/cmd/holdlight/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Errors are printed by commands.Execute with color formatting
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
