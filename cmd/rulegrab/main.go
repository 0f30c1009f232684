// Package main is the entry point for the rulegrab CLI.
package main

import (
	"os"

	"github.com/rulegrab/rulegrab/cmd/rulegrab/app"
)

func main() {
	// Logs go to stderr to keep stdout clean for command output
	// (e.g. version --format json, list)
	app.SetupLogging(os.Stderr, app.LogFormatJSON)

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
