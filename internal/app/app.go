// Package app wires configuration into a ready-to-run fetch run.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rulegrab/rulegrab/internal/config"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/sync/coordinator"
	"github.com/rulegrab/rulegrab/internal/telemetry"
)

// FetchApp encapsulates every component of one fetch run. It is used once:
// Run, then Close.
type FetchApp struct {
	config     *config.Config
	specs      []*sources.SourceSpec
	components *AppComponents
	telemetry  *telemetry.Telemetry
}

// Run fetches every selected tool and blocks until all units have ended and
// every observer has seen the final progress snapshot
func (app *FetchApp) Run(ctx context.Context) (*coordinator.Report, error) {
	slog.Info("Starting fetch run",
		"run_id", app.RunID(),
		"tools", len(app.specs),
		"output_root", app.config.GetOutputRoot())

	report, err := app.components.Coordinator.Run(ctx, app.specs)
	// nothing is published once the units have ended
	app.components.Tracker.Close()
	if err != nil {
		return nil, fmt.Errorf("fetch run failed: %w", err)
	}
	return report, nil
}

// Cancel asks every unit to stop before its next source. Safe from a signal
// handler goroutine.
func (app *FetchApp) Cancel() {
	app.components.Coordinator.Cancel()
}

// Close waits for observers to drain and flushes telemetry
func (app *FetchApp) Close(ctx context.Context) error {
	app.components.Tracker.Close()

	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown telemetry: %w", err)
		}
	}
	return nil
}

// RunID identifies this run
func (app *FetchApp) RunID() string {
	return app.components.Coordinator.RunID()
}

// Specs returns the source specs this run will fetch, in order
func (app *FetchApp) Specs() []*sources.SourceSpec {
	return app.specs
}

// GetConfig returns the application configuration
func (app *FetchApp) GetConfig() *config.Config {
	return app.config
}

// Components exposes the wired components, mostly for tests
func (app *FetchApp) Components() *AppComponents {
	return app.components
}
